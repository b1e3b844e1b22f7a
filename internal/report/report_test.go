package report

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/reference"
)

func TestFormatAmount(t *testing.T) {
	cases := map[core.Money]string{
		0:        "₩0",
		999:      "₩999",
		1000:     "₩1,000",
		1234567:  "₩1,234,567",
		-500:     "-₩500",
		-1500000: "-₩1,500,000",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", in, got, want)
		}
	}
	if got := FormatDelta(2500); got != "+₩2,500" {
		t.Fatalf("FormatDelta = %q", got)
	}
	if got := FormatPercent(12.345); got != "12.3%" {
		t.Fatalf("FormatPercent = %q", got)
	}
}

func sampleReport(t *testing.T) Report {
	t.Helper()
	ref := reference.Default()
	settings := core.BudgetSettings{
		UserID:      "u1",
		Region:      "seoul",
		GuestCount:  150,
		TotalBudget: 3000,
		CategoryBudgets: map[core.Category]core.Money{
			core.CategoryVenue: 800,
		},
	}
	items := []core.BudgetItem{
		{ID: "a", Category: core.CategoryVenue, Title: "hall deposit", Amount: 500, PaidBy: core.PayerShared,
			ItemDate: core.NewDate(2026, 3, 1), PaymentStage: core.StageDeposit, PaymentMethod: core.MethodTransfer,
			HasBalance: true, BalanceAmount: 1200, BalanceDueDate: core.NewDate(2026, 9, 1)},
		{ID: "b", Category: core.CategoryVenue, Title: "catering", Amount: 400, PaidBy: core.PayerPartyA,
			ItemDate: core.NewDate(2026, 3, 5), PaymentStage: core.StageFull, PaymentMethod: core.MethodCard},
		{ID: "c", Category: core.CategoryRings, Title: "bands", Amount: 100, PaidBy: core.PayerPartyB,
			ItemDate: core.NewDate(2026, 3, 7), PaymentStage: core.StageFull, PaymentMethod: core.MethodCard},
	}
	avg, _ := ref.Regional(settings.Region)
	s := budget.Summarize(settings, items, avg)
	return Build("u1", s, items, ref, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
}

func TestBuildReport(t *testing.T) {
	r := sampleReport(t)

	if r.RegionLabel != "Seoul" {
		t.Fatalf("region label = %q", r.RegionLabel)
	}
	if r.TotalSpent != 1000 || r.Remaining != 2000 || r.OutstandingBalance != 1200 {
		t.Fatalf("unexpected header figures: %+v", r)
	}
	if len(r.Categories) != len(core.AllCategories()) || len(r.Items) != 3 {
		t.Fatalf("unexpected row counts: %d categories, %d items", len(r.Categories), len(r.Items))
	}
	if r.Categories[0].Label != "Wedding hall" || !r.Categories[0].OverBudget {
		t.Fatalf("venue row wrong: %+v", r.Categories[0])
	}

	wantPayers := []PayerRow{
		{Payer: core.PayerShared, Amount: 500, Percent: 50},
		{Payer: core.PayerPartyA, Amount: 400, Percent: 40},
		{Payer: core.PayerPartyB, Amount: 100, Percent: 10},
	}
	if diff := cmp.Diff(wantPayers, r.Payers); diff != "" {
		t.Fatalf("payer rows mismatch (-want +got):\n%s", diff)
	}

	wantWarnings := []string{
		"Wedding hall is over budget by ₩100",
		"Rings and gifts has spending but no allocation",
	}
	if diff := cmp.Diff(wantWarnings, r.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestReportTables(t *testing.T) {
	r := sampleReport(t)

	table := r.Table()
	if len(table) != len(core.AllCategories())+2 {
		t.Fatalf("expected header, %d categories and total, got %d rows", len(core.AllCategories()), len(table))
	}
	total := table[len(table)-1]
	if total[0] != "Total" || total[2] != "₩1,000" || total[3] != "₩2,000" {
		t.Fatalf("unexpected total row: %v", total)
	}

	items := r.ItemTable()
	if len(items) != 4 {
		t.Fatalf("expected header plus 3 items, got %d", len(items))
	}
	first := items[1]
	if first[0] != "2026-03-01" || first[7] != "₩1,200" || first[8] != "2026-09-01" {
		t.Fatalf("unexpected first item row: %v", first)
	}
	if items[2][7] != "" || items[2][8] != "" {
		t.Fatalf("item without balance should leave balance cells empty: %v", items[2])
	}
}

func TestFacts(t *testing.T) {
	r := sampleReport(t)
	facts := r.Facts()
	joined := make([]string, 0, len(facts))
	for _, f := range facts {
		joined = append(joined, f[0]+"="+f[1])
	}
	got := strings.Join(joined, ";")
	if !strings.Contains(got, "Region=Seoul") || !strings.Contains(got, "Guests=150") {
		t.Fatalf("unexpected facts: %s", got)
	}
}

func TestBuildOverAllocationWarning(t *testing.T) {
	ref := reference.Default()
	settings := core.BudgetSettings{
		TotalBudget:     100,
		CategoryBudgets: map[core.Category]core.Money{core.CategoryOther: 150},
	}
	s := budget.Summarize(settings, nil, core.RegionalAverage{})
	r := Build("u", s, nil, ref, time.Now())
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "exceed the total budget by ₩50") {
		t.Fatalf("unexpected warnings: %v", r.Warnings)
	}
}
