package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/metrics"
	"wedplan/internal/reference"
	"wedplan/internal/sheets/memory"
)

type publishedChange struct {
	UserID, Operation, ItemID string
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []publishedChange
	err     error
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, userID, operation, itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, publishedChange{userID, operation, itemID})
	return nil
}

func (p *fakePublisher) published() []publishedChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedChange(nil), p.changes...)
}

var fixedNow = time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*LedgerService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	seq := 0
	svc := NewLedgerService(store, reference.Default(),
		WithPublisher(pub),
		WithMetrics(metrics.New()),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("item-%d", seq)
		}),
	)
	return svc, store, pub
}

func TestSettingsDefaultForNewUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	st, err := svc.Settings(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if st.UserID != "u1" || st.TotalBudget != 0 || st.CategoryBudgets == nil {
		t.Fatalf("unexpected default settings: %+v", st)
	}
}

func TestSaveSettings(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveSettings(ctx, "u1", SettingsInput{
		Region:      " Seoul ",
		GuestCount:  200,
		TotalBudget: 3000,
		// allocations above the total are accepted
		CategoryBudgets: map[core.Category]core.Money{core.CategoryVenue: 2500, core.CategoryRings: 900},
	})
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if saved.Region != "seoul" || !saved.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected saved settings: %+v", saved)
	}

	got, _ := svc.Settings(ctx, "u1")
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Fatalf("settings mismatch (-saved +fetched):\n%s", diff)
	}
	if changes := pub.published(); len(changes) != 1 || changes[0].Operation != "save_settings" {
		t.Fatalf("unexpected published changes: %+v", changes)
	}
}

func TestSaveSettingsRejectsNegatives(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SettingsInput
		want error
	}{
		{"negative total", SettingsInput{TotalBudget: -1}, core.ErrNegativeAmount},
		{"negative category", SettingsInput{CategoryBudgets: map[core.Category]core.Money{core.CategoryRings: -5}}, core.ErrNegativeAmount},
		{"negative guests", SettingsInput{GuestCount: -3}, core.ErrInvalidGuestCount},
		{"unknown category", SettingsInput{CategoryBudgets: map[core.Category]core.Money{"flowers": 5}}, core.ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveSettings(ctx, "u1", tt.in)
			if !errors.Is(err, ErrRejected) || !errors.Is(err, tt.want) {
				t.Fatalf("expected rejection wrapping %v, got %v", tt.want, err)
			}
		})
	}
	if len(pub.published()) != 0 {
		t.Fatalf("rejected settings must not publish")
	}
}

func TestAddItemAppliesDefaults(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	it, err := svc.AddItem(ctx, "u1", ItemInput{Title: "  Hall deposit ", Amount: 500})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	want := core.BudgetItem{
		ID:            "item-1",
		UserID:        "u1",
		Category:      core.CategoryVenue,
		Title:         "Hall deposit",
		Amount:        500,
		PaidBy:        core.PayerShared,
		ItemDate:      core.NewDate(2026, 4, 10),
		PaymentStage:  core.StageFull,
		PaymentMethod: core.MethodCard,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	if diff := cmp.Diff(want, it); diff != "" {
		t.Fatalf("item mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]publishedChange{{"u1", "add_item", "item-1"}}, pub.published()); diff != "" {
		t.Fatalf("published mismatch (-want +got):\n%s", diff)
	}
}

func TestAddItemClearsBalanceWithoutFlag(t *testing.T) {
	svc, _, _ := newTestService(t)
	it, err := svc.AddItem(context.Background(), "u1", ItemInput{
		Title:          "rings",
		Amount:         100,
		BalanceAmount:  300,
		BalanceDueDate: core.NewDate(2026, 5, 1),
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if it.BalanceAmount != 0 || !it.BalanceDueDate.IsEmpty() {
		t.Fatalf("balance fields should be cleared: %+v", it)
	}
}

func TestAddItemValidation(t *testing.T) {
	tests := []struct {
		name string
		in   ItemInput
		want error
	}{
		{"empty title", ItemInput{Title: "   ", Amount: 100}, core.ErrEmptyTitle},
		{"zero amount", ItemInput{Title: "x", Amount: 0}, core.ErrInvalidAmount},
		{"amount one", ItemInput{Title: "x", Amount: 1}, nil},
		{"negative amount", ItemInput{Title: "x", Amount: -10}, core.ErrInvalidAmount},
		{"unknown category", ItemInput{Title: "x", Amount: 10, Category: "flowers"}, core.ErrInvalidCategory},
		{"unknown payer", ItemInput{Title: "x", Amount: 10, PaidBy: "parents"}, core.ErrInvalidPayer},
		{"negative balance", ItemInput{Title: "x", Amount: 10, HasBalance: true, BalanceAmount: -1}, core.ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newTestService(t)
			ctx := context.Background()

			_, err := svc.AddItem(ctx, "u1", tt.in)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("AddItem: %v", err)
				}
				items, _ := store.FetchItems(ctx, "u1")
				if len(items) != 1 || items[0].Amount != 1 {
					t.Fatalf("items = %+v", items)
				}
				if len(pub.published()) != 1 {
					t.Fatalf("expected one published change, got %d", len(pub.published()))
				}
				return
			}
			if !errors.Is(err, ErrRejected) || !errors.Is(err, tt.want) {
				t.Fatalf("expected rejection wrapping %v, got %v", tt.want, err)
			}
			items, _ := store.FetchItems(ctx, "u1")
			if len(items) != 0 {
				t.Fatalf("rejected input was stored: %+v", items)
			}
			if len(pub.published()) != 0 {
				t.Fatalf("rejected input was published")
			}
		})
	}
}

func TestUpdateItemPreservesIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	orig, _ := svc.AddItem(ctx, "u1", ItemInput{Title: "dress", Amount: 700, Category: core.CategoryStyling, ItemDate: core.NewDate(2026, 3, 3)})

	later := fixedNow.Add(time.Hour)
	svc.now = func() time.Time { return later }

	updated, err := svc.UpdateItem(ctx, "u1", orig.ID, ItemInput{
		Title:         "dress and makeup",
		Amount:        900,
		Category:      core.CategoryStyling,
		PaidBy:        core.PayerPartyB,
		PaymentMethod: core.MethodTransfer,
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.ID != orig.ID || updated.UserID != "u1" || !updated.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("identity changed: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(later) || updated.ItemDate != orig.ItemDate {
		t.Fatalf("unexpected timestamps or date: %+v", updated)
	}
	if updated.Amount != 900 || updated.PaidBy != core.PayerPartyB || updated.PaymentStage != core.StageFull {
		t.Fatalf("fields not replaced: %+v", updated)
	}
}

func TestUpdateItemNotFoundAndForeign(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	it, _ := svc.AddItem(ctx, "u1", ItemInput{Title: "hall", Amount: 10})

	if _, err := svc.UpdateItem(ctx, "u1", "missing", ItemInput{Title: "x", Amount: 1}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := svc.UpdateItem(ctx, "u2", it.ID, ItemInput{Title: "x", Amount: 1}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("foreign update should be not found, got %v", err)
	}
	if _, err := svc.UpdateItem(ctx, "u1", it.ID, ItemInput{Title: "", Amount: 1}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	it, _ := svc.AddItem(ctx, "u1", ItemInput{Title: "hall", Amount: 10})

	for i := 0; i < 2; i++ {
		if err := svc.DeleteItem(ctx, "u1", it.ID); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if err := svc.DeleteItem(ctx, "u1", "never-existed"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	items, _ := svc.Items(ctx, "u1")
	if len(items) != 0 {
		t.Fatalf("expected empty ledger, got %+v", items)
	}
	// one add, one effective delete
	if got := len(pub.published()); got != 2 {
		t.Fatalf("published %d changes, want 2", got)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc, store, pub := newTestService(t)
	pub.err = errors.New("broker down")

	it, err := svc.AddItem(context.Background(), "u1", ItemInput{Title: "hall", Amount: 10})
	if err != nil {
		t.Fatalf("AddItem should succeed despite publish failure: %v", err)
	}
	if _, err := store.GetItem(context.Background(), "u1", it.ID); err != nil {
		t.Fatalf("item not stored: %v", err)
	}
}

func TestMissingUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Summary(context.Background(), ""); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "", ItemInput{Title: "x", Amount: 1}); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestSummaryVenueScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.SaveSettings(ctx, "u1", SettingsInput{
		Region:          "seoul",
		TotalBudget:     3000,
		CategoryBudgets: map[core.Category]core.Money{core.CategoryVenue: 800},
	})
	_, _ = svc.AddItem(ctx, "u1", ItemInput{Title: "hall", Amount: 500})
	_, _ = svc.AddItem(ctx, "u1", ItemInput{Title: "catering", Amount: 400})

	s, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.CategoryTotals[core.CategoryVenue] != 900 || !s.Category(core.CategoryVenue).OverBudget || s.Remaining != 2100 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !s.HasRegionalData {
		t.Fatalf("seoul should have regional data")
	}
}

func TestSplitAndBalancesAndReport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.SaveSettings(ctx, "u1", SettingsInput{
		TotalBudget:     1000,
		CategoryBudgets: map[core.Category]core.Money{core.CategoryVenue: 100, core.CategoryRings: 101},
	})

	res, err := svc.Split(ctx, "u1", map[core.Category]budget.SplitMode{core.CategoryVenue: budget.SplitPartyA}, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if res.PartyATotal != 151 || res.PartyBTotal != 51 {
		t.Fatalf("unexpected split totals %d/%d", res.PartyATotal, res.PartyBTotal)
	}

	_, _ = svc.AddItem(ctx, "u1", ItemInput{
		Title: "hall deposit", Amount: 100,
		HasBalance: true, BalanceAmount: 900, BalanceDueDate: core.NewDate(2026, 4, 20),
		PaymentStage: core.StageDeposit,
	})
	balances, err := svc.Balances(ctx, "u1", 0)
	if err != nil || len(balances) != 1 || balances[0].DaysLeft != 10 {
		t.Fatalf("unexpected balances %+v err=%v", balances, err)
	}

	r, err := svc.Report(ctx, "u1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r.UserID != "u1" || r.OutstandingBalance != 900 || len(r.Items) != 1 {
		t.Fatalf("unexpected report: %+v", r)
	}
}
