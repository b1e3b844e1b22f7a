// Package report turns a ledger summary into a presentation-neutral report
// that the CLI, the HTTP API and the Sheets exporter render in their own way.
package report

import (
	"fmt"
	"strconv"
	"time"

	"wedplan/internal/core"
	"wedplan/internal/reference"
)

type (
	// CategoryRow is one category line of the report.
	CategoryRow struct {
		Category        core.Category `json:"category"`
		Label           string        `json:"label"`
		Budget          core.Money    `json:"budget"`
		Spent           core.Money    `json:"spent"`
		Remaining       core.Money    `json:"remaining"`
		PercentUsed     float64       `json:"percent_used"`
		ItemCount       int           `json:"item_count"`
		RegionalAverage core.Money    `json:"regional_average"`
		RegionalDelta   core.Money    `json:"regional_delta"`
		OverBudget      bool          `json:"over_budget"`
	}

	PayerRow struct {
		Payer   core.Payer `json:"payer"`
		Amount  core.Money `json:"amount"`
		Percent float64    `json:"percent"`
	}

	ItemRow struct {
		ID            string             `json:"id"`
		Date          core.Date          `json:"date"`
		Category      core.Category      `json:"category"`
		Title         string             `json:"title"`
		Amount        core.Money         `json:"amount"`
		PaidBy        core.Payer         `json:"paid_by"`
		PaymentStage  core.PaymentStage  `json:"payment_stage"`
		PaymentMethod core.PaymentMethod `json:"payment_method"`
		Balance       core.Money         `json:"balance"`
		BalanceDue    core.Date          `json:"balance_due"`
	}

	// Report is the full structured view of one ledger at a point in time.
	Report struct {
		GeneratedAt        time.Time     `json:"generated_at"`
		UserID             string        `json:"user_id"`
		Region             core.Region   `json:"region"`
		RegionLabel        string        `json:"region_label"`
		GuestCount         int           `json:"guest_count"`
		TotalBudget        core.Money    `json:"total_budget"`
		TotalSpent         core.Money    `json:"total_spent"`
		Remaining          core.Money    `json:"remaining"`
		PercentUsed        float64       `json:"percent_used"`
		OutstandingBalance core.Money    `json:"outstanding_balance"`
		RegionalTotal      core.Money    `json:"regional_total"`
		Categories         []CategoryRow `json:"categories"`
		Payers             []PayerRow    `json:"payers"`
		Items              []ItemRow     `json:"items"`
		Warnings           []string      `json:"warnings"`
	}
)

// Build assembles a report from a summary and the items it was computed over.
func Build(userID string, s core.Summary, items []core.BudgetItem, ref *reference.Data, generatedAt time.Time) Report {
	r := Report{
		GeneratedAt:        generatedAt.UTC(),
		UserID:             userID,
		Region:             s.Region,
		GuestCount:         s.GuestCount,
		TotalBudget:        s.TotalBudget,
		TotalSpent:         s.TotalSpent,
		Remaining:          s.Remaining,
		PercentUsed:        s.PercentUsed,
		OutstandingBalance: s.OutstandingBalance,
		RegionalTotal:      s.RegionalTotal,
		Categories:         make([]CategoryRow, 0, len(s.Categories)),
		Payers:             make([]PayerRow, 0, len(core.AllPayers())),
		Items:              make([]ItemRow, 0, len(items)),
		Warnings:           []string{},
	}
	if avg, ok := ref.Regional(s.Region); ok {
		r.RegionLabel = avg.Label
	}

	for _, c := range s.Categories {
		r.Categories = append(r.Categories, CategoryRow{
			Category:        c.Category,
			Label:           ref.Label(c.Category),
			Budget:          c.Budget,
			Spent:           c.Spent,
			Remaining:       c.Remaining,
			PercentUsed:     c.PercentUsed,
			ItemCount:       c.ItemCount,
			RegionalAverage: c.RegionalAverage,
			RegionalDelta:   c.RegionalDelta,
			OverBudget:      c.OverBudget,
		})
	}

	for _, p := range core.AllPayers() {
		amount := s.PaidByTotals[p]
		var pct float64
		if s.TotalSpent > 0 {
			pct = float64(amount) * 100 / float64(s.TotalSpent)
		}
		r.Payers = append(r.Payers, PayerRow{Payer: p, Amount: amount, Percent: pct})
	}

	for _, it := range items {
		r.Items = append(r.Items, ItemRow{
			ID:            it.ID,
			Date:          it.ItemDate,
			Category:      it.Category,
			Title:         it.Title,
			Amount:        it.Amount,
			PaidBy:        it.PaidBy,
			PaymentStage:  it.PaymentStage,
			PaymentMethod: it.PaymentMethod,
			Balance:       it.BalanceAmount,
			BalanceDue:    it.BalanceDueDate,
		})
	}

	r.Warnings = warnings(s, ref)
	return r
}

func warnings(s core.Summary, ref *reference.Data) []string {
	out := []string{}
	if s.OverBudget {
		out = append(out, fmt.Sprintf("total spending exceeds the budget by %s", FormatAmount(-s.Remaining)))
	}
	if s.OverAllocated {
		out = append(out, fmt.Sprintf("category allocations exceed the total budget by %s", FormatAmount(s.AllocationDelta)))
	}
	for _, c := range s.Categories {
		switch {
		case c.OverBudget:
			out = append(out, fmt.Sprintf("%s is over budget by %s", ref.Label(c.Category), FormatAmount(-c.Remaining)))
		case c.Unbudgeted:
			out = append(out, fmt.Sprintf("%s has spending but no allocation", ref.Label(c.Category)))
		}
	}
	return out
}

// Facts returns the header key/value pairs in display order.
func (r Report) Facts() [][2]string {
	region := r.RegionLabel
	if region == "" {
		region = string(r.Region)
	}
	return [][2]string{
		{"Region", region},
		{"Guests", strconv.Itoa(r.GuestCount)},
		{"Total budget", FormatAmount(r.TotalBudget)},
		{"Spent", FormatAmount(r.TotalSpent)},
		{"Remaining", FormatAmount(r.Remaining)},
		{"Used", FormatPercent(r.PercentUsed)},
		{"Outstanding balances", FormatAmount(r.OutstandingBalance)},
	}
}

// Table returns the category table with a header row and a trailing total row.
func (r Report) Table() [][]string {
	rows := [][]string{{"Category", "Budget", "Spent", "Remaining", "Used", "Items", "Regional avg", "Delta"}}
	var budget core.Money
	var items int
	for _, c := range r.Categories {
		rows = append(rows, []string{
			c.Label,
			FormatAmount(c.Budget),
			FormatAmount(c.Spent),
			FormatAmount(c.Remaining),
			FormatPercent(c.PercentUsed),
			strconv.Itoa(c.ItemCount),
			FormatAmount(c.RegionalAverage),
			FormatDelta(c.RegionalDelta),
		})
		budget += c.Budget
		items += c.ItemCount
	}
	rows = append(rows, []string{
		"Total",
		FormatAmount(budget),
		FormatAmount(r.TotalSpent),
		FormatAmount(r.Remaining),
		FormatPercent(r.PercentUsed),
		strconv.Itoa(items),
		FormatAmount(r.RegionalTotal),
		FormatDelta(r.TotalSpent - r.RegionalTotal),
	})
	return rows
}

// ItemTable returns the item list with a header row.
func (r Report) ItemTable() [][]string {
	rows := [][]string{{"Date", "Category", "Title", "Amount", "Paid by", "Stage", "Method", "Balance", "Due"}}
	for _, it := range r.Items {
		balance := ""
		if it.Balance > 0 {
			balance = FormatAmount(it.Balance)
		}
		rows = append(rows, []string{
			it.Date.String(),
			string(it.Category),
			it.Title,
			FormatAmount(it.Amount),
			string(it.PaidBy),
			string(it.PaymentStage),
			string(it.PaymentMethod),
			balance,
			it.BalanceDue.String(),
		})
	}
	return rows
}
