package cache

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(30 * time.Second)
	c.Set("b", "z")
	now = now.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Fatalf("b = %q, %v", v, ok)
	}

	now = now.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after sweep", c.Size())
	}
}

func TestLRUCacheUpdate(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	inc := func(cur int, found bool) int {
		if !found {
			return 1
		}
		return cur + 1
	}
	c.Update("k", inc)
	c.Update("k", inc)
	if got := c.Update("k", inc); got != 3 {
		t.Fatalf("Update = %d, want 3", got)
	}
	c.Delete("k")
	if got := c.Update("k", inc); got != 1 {
		t.Fatalf("Update after Delete = %d, want 1", got)
	}
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	now = now.Add(time.Minute)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
