package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wedplan/internal/budget"
	"wedplan/internal/core"
)

func TestParseSplitModes(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[core.Category]budget.SplitMode
		wantErr bool
	}{
		{"none", nil, map[core.Category]budget.SplitMode{}, false},
		{"two", []string{"rings=party_b", "Venue=SHARED"}, map[core.Category]budget.SplitMode{
			core.CategoryRings: budget.SplitPartyB,
			core.CategoryVenue: budget.SplitShared,
		}, false},
		{"missing equals", []string{"rings"}, nil, true},
		{"bad category", []string{"cake=shared"}, nil, true},
		{"bad mode", []string{"rings=both"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSplitModes(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Fatalf("modes mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestParseCategoryAmounts(t *testing.T) {
	got, err := parseCategoryAmounts([]string{"venue=15,000,000", "rings=5000000"})
	if err != nil {
		t.Fatalf("parseCategoryAmounts: %v", err)
	}
	want := map[core.Category]core.Money{core.CategoryVenue: 15_000_000, core.CategoryRings: 5_000_000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("amounts mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"venue", "venue=-5", "venue=abc", "cake=10", "venue=9.99"} {
		if _, err := parseCategoryAmounts([]string{bad}); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestWithTotalSeparator(t *testing.T) {
	rows := [][]string{{"h"}, {"a"}, {"Total"}}
	got := withTotalSeparator(rows)
	want := [][]string{{"h"}, {"a"}, {"---"}, {"Total"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	short := [][]string{{"h"}, {"Total"}}
	if diff := cmp.Diff(short, withTotalSeparator(short)); diff != "" {
		t.Fatalf("short table changed:\n%s", diff)
	}
}

func TestBalanceRows(t *testing.T) {
	rows := balanceRows([]budget.BalanceDue{
		{Title: "Hall", Category: core.CategoryVenue, Amount: 8_000_000, DueDate: core.NewDate(2026, 5, 1), DaysLeft: 21},
		{Title: "Dress", Category: core.CategoryStyling, Amount: 500_000},
	})
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0][2] != "₩8,000,000" || rows[0][3] != "2026-05-01" || !strings.Contains(rows[0][4], "21") {
		t.Fatalf("dated row = %v", rows[0])
	}
	if rows[1][3] != "-" || rows[1][4] != "-" {
		t.Fatalf("undated row = %v", rows[1])
	}
}

// run executes one wedplanctl invocation against dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--db", dbPath, "--user", "couple-1"}, args...))
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("wedplanctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandsAgainstSQLite(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("WEDPLAN_USER", "")
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	out := run(t, dbPath, "migrate")
	if !strings.Contains(out, "schema version 2") {
		t.Fatalf("migrate output:\n%s", out)
	}

	out = run(t, dbPath, "settings", "--total", "30,000,000", "--budget", "venue=15,000,000", "--budget", "rings=5,000,000")
	if !strings.Contains(out, "₩30,000,000") || !strings.Contains(out, "-₩10,000,000") {
		t.Fatalf("settings output:\n%s", out)
	}

	out = run(t, dbPath, "add-item", "--title", "Hall deposit", "--amount", "2,000,000",
		"--category", "venue", "--date", "2026-04-01", "--balance", "8,000,000", "--due", "2099-01-01")
	if !strings.Contains(out, "Hall deposit") {
		t.Fatalf("add-item output:\n%s", out)
	}

	out = run(t, dbPath, "items")
	if !strings.Contains(out, "Hall deposit") || !strings.Contains(out, "₩2,000,000") {
		t.Fatalf("items output:\n%s", out)
	}

	out = run(t, dbPath, "summary")
	if !strings.Contains(out, "Categories") || !strings.Contains(out, "₩2,000,000") {
		t.Fatalf("summary output:\n%s", out)
	}

	out = run(t, dbPath, "split", "--mode", "rings=party_b")
	if !strings.Contains(out, "₩7,500,000") || !strings.Contains(out, "₩12,500,000") {
		t.Fatalf("split output:\n%s", out)
	}

	out = run(t, dbPath, "balances")
	if !strings.Contains(out, "₩8,000,000") || !strings.Contains(out, "2099-01-01") {
		t.Fatalf("balances output:\n%s", out)
	}
}

func TestCommandsRequireUser(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	flagUser = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "ledger.db"), "--user", "", "items"})
	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error without a user")
	}
}
