package budget

import (
	"testing"

	"wedplan/internal/core"
)

func balanceItem(id string, amount core.Money, due core.Date) core.BudgetItem {
	it := item(core.CategoryVenue, 1000, core.PayerShared)
	it.ID = id
	it.Title = "hall " + id
	it.HasBalance = amount != 0
	it.BalanceAmount = amount
	it.BalanceDueDate = due
	it.PaymentStage = core.StageDeposit
	return it
}

func TestOutstandingBalancesOrdering(t *testing.T) {
	today := core.NewDate(2026, 5, 1)
	items := []core.BudgetItem{
		balanceItem("undated", 100, core.Date{}),
		balanceItem("late", 200, core.NewDate(2026, 6, 20)),
		balanceItem("overdue", 300, core.NewDate(2026, 4, 25)),
		balanceItem("paid", 0, core.NewDate(2026, 5, 2)),
		balanceItem("soon", 400, core.NewDate(2026, 5, 3)),
	}

	got := OutstandingBalances(items, today, 0)
	wantIDs := []string{"overdue", "soon", "late", "undated"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d balances, want %d: %+v", len(got), len(wantIDs), got)
	}
	for i, id := range wantIDs {
		if got[i].ItemID != id {
			t.Fatalf("position %d = %q, want %q", i, got[i].ItemID, id)
		}
	}
	if !got[0].Overdue || got[0].DaysLeft != -6 {
		t.Fatalf("overdue entry wrong: %+v", got[0])
	}
	if got[1].Overdue || got[1].DaysLeft != 2 {
		t.Fatalf("upcoming entry wrong: %+v", got[1])
	}
	if got[3].DaysLeft != 0 || got[3].Overdue {
		t.Fatalf("undated entry should carry no countdown: %+v", got[3])
	}
}

func TestOutstandingBalancesWindow(t *testing.T) {
	today := core.NewDate(2026, 5, 1)
	items := []core.BudgetItem{
		balanceItem("in", 100, core.NewDate(2026, 5, 8)),
		balanceItem("edge", 100, core.NewDate(2026, 5, 15)),
		balanceItem("out", 100, core.NewDate(2026, 5, 16)),
		balanceItem("overdue", 100, core.NewDate(2026, 1, 1)),
		balanceItem("undated", 100, core.Date{}),
	}

	got := OutstandingBalances(items, today, 14)
	ids := map[string]bool{}
	for _, b := range got {
		ids[b.ItemID] = true
	}
	for _, want := range []string{"in", "edge", "overdue", "undated"} {
		if !ids[want] {
			t.Fatalf("expected %q in window result, got %+v", want, got)
		}
	}
	if ids["out"] {
		t.Fatalf("balance beyond the window should be dropped")
	}
}

func TestOutstandingBalancesEmpty(t *testing.T) {
	if got := OutstandingBalances(nil, core.NewDate(2026, 1, 1), 7); len(got) != 0 {
		t.Fatalf("expected no balances, got %+v", got)
	}
}
