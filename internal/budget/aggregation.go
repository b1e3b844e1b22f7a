// Package budget holds the pure derivations over a ledger snapshot: the
// aggregation engine, the split simulator and the outstanding balance view.
//
// Nothing in this package performs I/O or keeps state between calls; every
// function recomputes from the snapshot it is given.
package budget

import "wedplan/internal/core"

// Summarize derives the summary figures for a ledger snapshot.
//
// regional carries the averages for settings.Region; pass the zero value when
// the region has no reference data and every delta is computed against 0.
func Summarize(settings core.BudgetSettings, items []core.BudgetItem, regional core.RegionalAverage) core.Summary {
	s := core.Summary{
		Region:          settings.Region,
		HasRegionalData: regional.Total > 0 || len(regional.ByCategory) > 0,
		GuestCount:      settings.GuestCount,
		TotalBudget:     settings.TotalBudget,
		AllocatedTotal:  settings.AllocatedTotal(),
		AllocationDelta: settings.AllocationDelta(),
		CategoryTotals:  make(map[core.Category]core.Money, len(core.AllCategories())),
		PaidByTotals:    make(map[core.Payer]core.Money, len(core.AllPayers())),
		RegionalTotal:   regional.Total,
	}
	for _, c := range core.AllCategories() {
		s.CategoryTotals[c] = 0
	}
	for _, p := range core.AllPayers() {
		s.PaidByTotals[p] = 0
	}

	counts := make(map[core.Category]int, len(core.AllCategories()))
	for _, it := range items {
		s.TotalSpent += it.Amount
		s.CategoryTotals[it.Category] += it.Amount
		s.PaidByTotals[it.PaidBy] += it.Amount
		counts[it.Category]++
		if it.HasBalance {
			s.OutstandingBalance += it.BalanceAmount
		}
	}

	s.Remaining = s.TotalBudget - s.TotalSpent
	s.OverBudget = s.Remaining < 0
	s.PercentUsed = PercentOf(s.TotalSpent, s.TotalBudget)
	s.OverAllocated = s.AllocationDelta > 0
	s.RegionalTotalDelta = s.TotalSpent - regional.Total

	s.Categories = make([]core.CategorySummary, 0, len(core.AllCategories()))
	for _, c := range core.AllCategories() {
		budget := settings.Budget(c)
		spent := s.CategoryTotals[c]
		avg := regional.ByCategory[c]
		s.Categories = append(s.Categories, core.CategorySummary{
			Category:        c,
			Budget:          budget,
			Spent:           spent,
			Remaining:       budget - spent,
			ItemCount:       counts[c],
			PercentUsed:     PercentOf(spent, budget),
			OverBudget:      budget > 0 && spent > budget,
			Unbudgeted:      budget == 0 && spent > 0,
			RegionalAverage: avg,
			RegionalDelta:   spent - avg,
		})
	}
	return s
}

// PercentOf returns part/whole*100. A zero or negative whole yields 0, never
// NaN or Inf.
func PercentOf(part, whole core.Money) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
