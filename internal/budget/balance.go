package budget

import (
	"sort"

	"wedplan/internal/core"
)

// BalanceDue is an unpaid remainder on a recorded expense.
type BalanceDue struct {
	ItemID   string        `json:"item_id"`
	UserID   string        `json:"user_id,omitempty"`
	Title    string        `json:"title"`
	Category core.Category `json:"category"`
	Amount   core.Money    `json:"amount"`
	DueDate  core.Date     `json:"due_date"`
	DaysLeft int           `json:"days_left"`
	Overdue  bool          `json:"overdue"`
}

// OutstandingBalances lists items carrying a balance, earliest due date first
// and undated balances last.
//
// A positive window keeps only balances due within that many days of today;
// overdue and undated balances are always kept.
func OutstandingBalances(items []core.BudgetItem, today core.Date, window int) []BalanceDue {
	var out []BalanceDue
	for _, it := range items {
		if !it.HasBalance || it.BalanceAmount <= 0 {
			continue
		}
		b := BalanceDue{
			ItemID:   it.ID,
			UserID:   it.UserID,
			Title:    it.Title,
			Category: it.Category,
			Amount:   it.BalanceAmount,
			DueDate:  it.BalanceDueDate,
		}
		if !it.BalanceDueDate.IsEmpty() {
			b.DaysLeft = today.DaysUntil(it.BalanceDueDate)
			b.Overdue = b.DaysLeft < 0
			if window > 0 && b.DaysLeft > window {
				continue
			}
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DueDate, out[j].DueDate
		switch {
		case di.IsEmpty() && dj.IsEmpty():
			return false
		case di.IsEmpty():
			return false
		case dj.IsEmpty():
			return true
		default:
			return di.Before(dj.Time)
		}
	})
	return out
}
