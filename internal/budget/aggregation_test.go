package budget

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wedplan/internal/core"
)

func item(c core.Category, amount core.Money, payer core.Payer) core.BudgetItem {
	return core.BudgetItem{
		Category:      c,
		Title:         "t",
		Amount:        amount,
		PaidBy:        payer,
		PaymentStage:  core.StageFull,
		PaymentMethod: core.MethodCard,
	}
}

func TestSummarizeVenueOverBudgetScenario(t *testing.T) {
	settings := core.BudgetSettings{
		TotalBudget:     3000,
		CategoryBudgets: map[core.Category]core.Money{core.CategoryVenue: 800},
	}
	items := []core.BudgetItem{
		item(core.CategoryVenue, 500, core.PayerShared),
		item(core.CategoryVenue, 400, core.PayerPartyA),
	}

	s := Summarize(settings, items, core.RegionalAverage{})

	if s.CategoryTotals[core.CategoryVenue] != 900 {
		t.Fatalf("venue total = %d, want 900", s.CategoryTotals[core.CategoryVenue])
	}
	venue := s.Category(core.CategoryVenue)
	if !venue.OverBudget {
		t.Fatalf("venue should be over budget: %+v", venue)
	}
	if venue.Remaining != -100 {
		t.Fatalf("venue remaining = %d, want -100", venue.Remaining)
	}
	if s.Remaining != 2100 {
		t.Fatalf("remaining = %d, want 2100", s.Remaining)
	}
	if s.OverBudget {
		t.Fatalf("ledger should not be over budget overall")
	}
}

func TestSummarizePartitionsAgree(t *testing.T) {
	items := []core.BudgetItem{
		item(core.CategoryVenue, 12000, core.PayerShared),
		item(core.CategoryStyling, 3500, core.PayerPartyB),
		item(core.CategoryRings, 2200, core.PayerPartyA),
		item(core.CategoryRings, 1800, core.PayerPartyB),
		item(core.CategoryHoneymoon, 4100, core.PayerShared),
		item(core.CategoryOther, 7, core.PayerPartyA),
	}
	s := Summarize(core.BudgetSettings{TotalBudget: 20000}, items, core.RegionalAverage{})

	var byCat, byPayer core.Money
	for _, v := range s.CategoryTotals {
		byCat += v
	}
	for _, v := range s.PaidByTotals {
		byPayer += v
	}
	if byCat != s.TotalSpent || byPayer != s.TotalSpent {
		t.Fatalf("partitions disagree: total=%d byCategory=%d byPayer=%d", s.TotalSpent, byCat, byPayer)
	}
	if s.TotalSpent != 23607 {
		t.Fatalf("total spent = %d, want 23607", s.TotalSpent)
	}
	if s.Remaining != -3607 || !s.OverBudget {
		t.Fatalf("expected negative remaining, got %d (over=%v)", s.Remaining, s.OverBudget)
	}
}

func TestSummarizeEmptyLedger(t *testing.T) {
	settings := core.BudgetSettings{TotalBudget: 5000}
	s := Summarize(settings, nil, core.RegionalAverage{})

	if s.TotalSpent != 0 || s.Remaining != 5000 {
		t.Fatalf("unexpected totals: spent=%d remaining=%d", s.TotalSpent, s.Remaining)
	}
	for _, c := range core.AllCategories() {
		v, ok := s.CategoryTotals[c]
		if !ok || v != 0 {
			t.Fatalf("category %q should be present with 0, got %d (present=%v)", c, v, ok)
		}
	}
	for _, p := range core.AllPayers() {
		v, ok := s.PaidByTotals[p]
		if !ok || v != 0 {
			t.Fatalf("payer %q should be present with 0, got %d (present=%v)", p, v, ok)
		}
	}
	if len(s.Categories) != len(core.AllCategories()) {
		t.Fatalf("expected a row per category, got %d", len(s.Categories))
	}
}

func TestSummarizeZeroBudgetPercentIsZero(t *testing.T) {
	items := []core.BudgetItem{item(core.CategoryHousehold, 900, core.PayerShared)}
	s := Summarize(core.BudgetSettings{}, items, core.RegionalAverage{})

	for _, row := range s.Categories {
		if row.PercentUsed != 0 || math.IsNaN(row.PercentUsed) || math.IsInf(row.PercentUsed, 0) {
			t.Fatalf("category %q percent = %v, want 0", row.Category, row.PercentUsed)
		}
	}
	if s.PercentUsed != 0 {
		t.Fatalf("overall percent = %v, want 0", s.PercentUsed)
	}
	household := s.Category(core.CategoryHousehold)
	if household.OverBudget || !household.Unbudgeted {
		t.Fatalf("zero-budget spend should be flagged unbudgeted, got %+v", household)
	}
}

func TestSummarizePercentUsed(t *testing.T) {
	settings := core.BudgetSettings{
		TotalBudget:     1000,
		CategoryBudgets: map[core.Category]core.Money{core.CategoryRings: 400},
	}
	s := Summarize(settings, []core.BudgetItem{item(core.CategoryRings, 100, core.PayerShared)}, core.RegionalAverage{})

	if got := s.Category(core.CategoryRings).PercentUsed; got != 25 {
		t.Fatalf("rings percent = %v, want 25", got)
	}
	if s.PercentUsed != 10 {
		t.Fatalf("overall percent = %v, want 10", s.PercentUsed)
	}
}

func TestSummarizeRegionalDelta(t *testing.T) {
	regional := core.RegionalAverage{
		Region: "seoul",
		Total:  1000,
		ByCategory: map[core.Category]core.Money{
			core.CategoryVenue:     600,
			core.CategoryHoneymoon: 400,
		},
	}
	items := []core.BudgetItem{
		item(core.CategoryVenue, 750, core.PayerShared),
		item(core.CategoryHoneymoon, 100, core.PayerShared),
	}
	s := Summarize(core.BudgetSettings{Region: "seoul"}, items, regional)

	got := map[core.Category]core.Money{}
	for _, row := range s.Categories {
		got[row.Category] = row.RegionalDelta
	}
	want := map[core.Category]core.Money{
		core.CategoryVenue:     150,
		core.CategoryStyling:   0,
		core.CategoryRings:     0,
		core.CategoryHousehold: 0,
		core.CategoryHoneymoon: -300,
		core.CategoryOther:     0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("regional delta mismatch (-want +got):\n%s", diff)
	}
	if !s.HasRegionalData || s.RegionalTotalDelta != -150 {
		t.Fatalf("unexpected regional totals: has=%v delta=%d", s.HasRegionalData, s.RegionalTotalDelta)
	}
}

func TestSummarizeMissingRegionDegrades(t *testing.T) {
	items := []core.BudgetItem{item(core.CategoryVenue, 300, core.PayerShared)}
	s := Summarize(core.BudgetSettings{Region: "atlantis"}, items, core.RegionalAverage{Region: "atlantis"})

	if s.HasRegionalData {
		t.Fatalf("expected no regional data")
	}
	if got := s.Category(core.CategoryVenue).RegionalDelta; got != 300 {
		t.Fatalf("delta against missing average = %d, want 300", got)
	}
}

func TestSummarizeAllocationAndBalances(t *testing.T) {
	settings := core.BudgetSettings{
		TotalBudget: 1000,
		CategoryBudgets: map[core.Category]core.Money{
			core.CategoryVenue:   700,
			core.CategoryStyling: 500,
		},
	}
	withBalance := item(core.CategoryVenue, 200, core.PayerShared)
	withBalance.HasBalance = true
	withBalance.BalanceAmount = 500

	s := Summarize(settings, []core.BudgetItem{withBalance}, core.RegionalAverage{})
	if s.AllocatedTotal != 1200 || s.AllocationDelta != 200 || !s.OverAllocated {
		t.Fatalf("unexpected allocation: total=%d delta=%d over=%v", s.AllocatedTotal, s.AllocationDelta, s.OverAllocated)
	}
	if s.OutstandingBalance != 500 {
		t.Fatalf("outstanding = %d, want 500", s.OutstandingBalance)
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		part, whole core.Money
		want        float64
	}{
		{50, 200, 25},
		{300, 200, 150},
		{10, 0, 0},
		{0, 0, 0},
		{10, -5, 0},
	}
	for _, tc := range cases {
		if got := PercentOf(tc.part, tc.whole); got != tc.want {
			t.Fatalf("PercentOf(%d, %d) = %v, want %v", tc.part, tc.whole, got, tc.want)
		}
	}
}
