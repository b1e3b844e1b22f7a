package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"wedplan/internal/core"
)

const (
	SplitShared SplitMode = "shared"
	SplitPartyA SplitMode = "party_a"
	SplitPartyB SplitMode = "party_b"
)

// SplitMode decides who carries a category in the split simulation.
type SplitMode string

// Next rotates the mode: shared -> party_a -> party_b -> shared.
// Unknown modes restart the rotation at shared.
func (m SplitMode) Next() SplitMode {
	switch m {
	case SplitShared:
		return SplitPartyA
	case SplitPartyA:
		return SplitPartyB
	default:
		return SplitShared
	}
}

func (m SplitMode) Valid() bool {
	switch m {
	case SplitShared, SplitPartyA, SplitPartyB:
		return true
	}
	return false
}

// ParseSplitMode converts user input into a SplitMode.
func ParseSplitMode(s string) (SplitMode, error) {
	m := SplitMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid split mode %q", s)
	}
	return m, nil
}

// CategorySplit is the simulated division of one category budget.
type CategorySplit struct {
	Category core.Category `json:"category"`
	Mode     SplitMode     `json:"mode"`
	Budget   core.Money    `json:"budget"`
	PartyA   core.Money    `json:"party_a"`
	PartyB   core.Money    `json:"party_b"`
}

// SplitResult aggregates the per-category splits.
type SplitResult struct {
	Ratio         int             `json:"ratio"`
	Categories    []CategorySplit `json:"categories"`
	PartyATotal   core.Money      `json:"party_a_total"`
	PartyBTotal   core.Money      `json:"party_b_total"`
	PartyAPercent int             `json:"party_a_percent"`
	PartyBPercent int             `json:"party_b_percent"`
}

var hundred = decimal.NewFromInt(100)

// SimulateSplit divides each category budget between the two parties.
//
// Categories absent from modes are shared. ratio is party A's share of shared
// categories in percent and is clamped to 0..100. Each side of a shared
// category is rounded half-up on its own, so the two sides of an odd budget
// may sum to one unit more than the budget; the pair is left as computed.
func SimulateSplit(categoryBudgets map[core.Category]core.Money, modes map[core.Category]SplitMode, ratio int) SplitResult {
	ratio = clampRatio(ratio)
	res := SplitResult{
		Ratio:      ratio,
		Categories: make([]CategorySplit, 0, len(core.AllCategories())),
	}

	for _, c := range core.AllCategories() {
		budget := categoryBudgets[c]
		mode, ok := modes[c]
		if !ok || !mode.Valid() {
			mode = SplitShared
		}

		cs := CategorySplit{Category: c, Mode: mode, Budget: budget}
		switch mode {
		case SplitPartyA:
			cs.PartyA = budget
		case SplitPartyB:
			cs.PartyB = budget
		default:
			cs.PartyA = roundShare(budget, ratio)
			cs.PartyB = roundShare(budget, 100-ratio)
		}
		res.PartyATotal += cs.PartyA
		res.PartyBTotal += cs.PartyB
		res.Categories = append(res.Categories, cs)
	}

	total := res.PartyATotal + res.PartyBTotal
	if total > 0 {
		res.PartyAPercent = int(decimal.NewFromInt(res.PartyATotal.Int64()).
			Mul(hundred).
			Div(decimal.NewFromInt(total.Int64())).
			Round(0).
			IntPart())
		res.PartyBPercent = 100 - res.PartyAPercent
	}
	return res
}

// roundShare returns round(budget * pct / 100) with halves rounded up.
func roundShare(budget core.Money, pct int) core.Money {
	v := decimal.NewFromInt(budget.Int64()).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(hundred).
		Round(0)
	return core.Money(v.IntPart())
}

func clampRatio(ratio int) int {
	if ratio < 0 {
		return 0
	}
	if ratio > 100 {
		return 100
	}
	return ratio
}
