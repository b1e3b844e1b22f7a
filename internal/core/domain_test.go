package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validItem() BudgetItem {
	return BudgetItem{
		Category:      CategoryVenue,
		Title:         "Deposit",
		Amount:        500,
		PaidBy:        PayerShared,
		ItemDate:      NewDate(2025, 5, 10),
		PaymentStage:  StageDeposit,
		PaymentMethod: MethodTransfer,
	}
}

func TestBudgetItemValidate(t *testing.T) {
	if err := validItem().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*BudgetItem)
		want   error
	}{
		{"empty title", func(it *BudgetItem) { it.Title = "" }, ErrEmptyTitle},
		{"blank title", func(it *BudgetItem) { it.Title = "   " }, ErrEmptyTitle},
		{"zero amount", func(it *BudgetItem) { it.Amount = 0 }, ErrInvalidAmount},
		{"negative amount", func(it *BudgetItem) { it.Amount = -1 }, ErrInvalidAmount},
		{"unknown category", func(it *BudgetItem) { it.Category = "catering" }, ErrInvalidCategory},
		{"unknown payer", func(it *BudgetItem) { it.PaidBy = "parents" }, ErrInvalidPayer},
		{"unknown stage", func(it *BudgetItem) { it.PaymentStage = "partial" }, ErrInvalidStage},
		{"unknown method", func(it *BudgetItem) { it.PaymentMethod = "crypto" }, ErrInvalidMethod},
		{"negative balance", func(it *BudgetItem) { it.HasBalance = true; it.BalanceAmount = -5 }, ErrNegativeAmount},
		{"title over limit", func(it *BudgetItem) { it.Title = strings.Repeat("웨", maxTitleLength+1) }, ErrTitleTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := validItem()
			tc.mutate(&it)
			if err := it.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBudgetItemTitleLimitCountsCharacters(t *testing.T) {
	for _, n := range []int{70, maxTitleLength} {
		it := validItem()
		it.Title = strings.Repeat("웨", n)
		if err := it.Validate(); err != nil {
			t.Fatalf("%d Hangul characters (%d bytes): %v", n, len(it.Title), err)
		}
	}
}

func TestBudgetItemNormalizeClearsBalance(t *testing.T) {
	it := validItem()
	it.HasBalance = false
	it.BalanceAmount = 1000
	it.BalanceDueDate = NewDate(2025, 6, 1)
	it.Title = "  Deposit  "
	it.Normalize()

	if it.BalanceAmount != 0 || !it.BalanceDueDate.IsEmpty() {
		t.Fatalf("balance fields not cleared: %+v", it)
	}
	if it.Title != "Deposit" {
		t.Fatalf("title not trimmed: %q", it.Title)
	}

	it.HasBalance = true
	it.BalanceAmount = 1000
	it.Normalize()
	if it.BalanceAmount != 1000 {
		t.Fatalf("balance cleared for item with balance")
	}
}

func TestBudgetSettingsAllocation(t *testing.T) {
	s := BudgetSettings{
		TotalBudget: 3000,
		CategoryBudgets: map[Category]Money{
			CategoryVenue:     800,
			CategoryHoneymoon: 2500,
		},
	}
	if got := s.Budget(CategoryRings); got != 0 {
		t.Fatalf("unset category should be 0, got %d", got)
	}
	if got := s.AllocatedTotal(); got != 3300 {
		t.Fatalf("allocated total = %d, want 3300", got)
	}
	if got := s.AllocationDelta(); got != 300 {
		t.Fatalf("allocation delta = %d, want 300", got)
	}
	// Over-allocation is advisory and never a validation failure.
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestBudgetSettingsValidate(t *testing.T) {
	bads := []BudgetSettings{
		{TotalBudget: -1},
		{GuestCount: -3},
		{CategoryBudgets: map[Category]Money{CategoryVenue: -10}},
		{CategoryBudgets: map[Category]Money{"flowers": 10}},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if err := (BudgetSettings{}).Validate(); err != nil {
		t.Fatalf("empty settings should validate, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: NewDate(2025, 3, 9)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2025-03-09"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":null}`), &w); err != nil || !w.D.IsEmpty() {
		t.Fatalf("null should decode to empty date, got %v (err=%v)", w.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-13-01"}`), &w); err == nil {
		t.Fatalf("expected error for invalid month")
	}
}

func TestDaysUntil(t *testing.T) {
	from := NewDate(2025, 1, 30)
	if got := from.DaysUntil(NewDate(2025, 2, 2)); got != 3 {
		t.Fatalf("DaysUntil = %d, want 3", got)
	}
	if got := from.DaysUntil(NewDate(2025, 1, 28)); got != -2 {
		t.Fatalf("DaysUntil = %d, want -2", got)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Venue ")
	if err != nil || c != CategoryVenue {
		t.Fatalf("expected venue, got %q (err=%v)", c, err)
	}
	if _, err := ParseCategory("catering"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}
