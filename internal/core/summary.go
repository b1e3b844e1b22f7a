package core

// CategorySummary is the derived view of a single category.
type CategorySummary struct {
	Category        Category `json:"category"`
	Budget          Money    `json:"budget"`
	Spent           Money    `json:"spent"`
	Remaining       Money    `json:"remaining"`
	ItemCount       int      `json:"item_count"`
	PercentUsed     float64  `json:"percent_used"`
	OverBudget      bool     `json:"over_budget"`
	Unbudgeted      bool     `json:"unbudgeted"`
	RegionalAverage Money    `json:"regional_average"`
	RegionalDelta   Money    `json:"regional_delta"`
}

// Summary is recomputed from the ledger on every read; it is never persisted.
type Summary struct {
	Region             Region             `json:"region"`
	HasRegionalData    bool               `json:"has_regional_data"`
	GuestCount         int                `json:"guest_count"`
	TotalBudget        Money              `json:"total_budget"`
	TotalSpent         Money              `json:"total_spent"`
	Remaining          Money              `json:"remaining"`
	OverBudget         bool               `json:"over_budget"`
	PercentUsed        float64            `json:"percent_used"`
	AllocatedTotal     Money              `json:"allocated_total"`
	AllocationDelta    Money              `json:"allocation_delta"`
	OverAllocated      bool               `json:"over_allocated"`
	OutstandingBalance Money              `json:"outstanding_balance"`
	CategoryTotals     map[Category]Money `json:"category_totals"`
	PaidByTotals       map[Payer]Money    `json:"paid_by_totals"`
	Categories         []CategorySummary  `json:"categories"`
	RegionalTotal      Money              `json:"regional_total"`
	RegionalTotalDelta Money              `json:"regional_total_delta"`
}

// Category returns the row for c, or a zero row when c is unknown.
func (s Summary) Category(c Category) CategorySummary {
	for _, row := range s.Categories {
		if row.Category == c {
			return row
		}
	}
	return CategorySummary{Category: c}
}
