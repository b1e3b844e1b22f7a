package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wedplan/internal/budget"
	"wedplan/internal/cli"
	"wedplan/internal/core"
	"wedplan/internal/report"
	"wedplan/internal/storage"
)

var (
	splitRatio    int
	splitModes    []string
	balanceDays   int
	migrateStatus bool
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Simulate dividing category budgets between the two parties",
	Long: "Shared categories are divided by --ratio (party A's percent). Use --mode rings=party_b\n" +
		"to assign a whole category to one party; the flag may be repeated.",
	RunE: runSplit,
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Outstanding balances, earliest due first",
	RunE:  runBalances,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger report to Google Sheets",
	RunE:  runExport,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	splitCmd.Flags().IntVar(&splitRatio, "ratio", 50, "Party A's share of shared categories in percent (0-100)")
	splitCmd.Flags().StringArrayVar(&splitModes, "mode", nil, "Category mode as category=shared|party_a|party_b")

	balancesCmd.Flags().IntVarP(&balanceDays, "window", "w", 0, "Only balances due within this many days (0 = all)")

	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print the schema version without migrating")

	rootCmd.AddCommand(splitCmd, balancesCmd, exportCmd, migrateCmd)
}

func runSplit(cmd *cobra.Command, _ []string) error {
	modes, err := parseSplitModes(splitModes)
	if err != nil {
		return err
	}
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		res, err := s.ledger.Split(ctx, userID, modes, splitRatio)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("SPLIT  %d / %d", res.Ratio, 100-res.Ratio)))
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderTable(cli.Table{
			Headers: []string{"Category", "Mode", "Budget", "Party A", "Party B"},
			Rows:    splitRows(res, s.ref.Label),
		}))
		return nil
	})
}

func splitRows(res budget.SplitResult, label func(core.Category) string) [][]string {
	rows := make([][]string, 0, len(res.Categories)+2)
	var total core.Money
	for _, c := range res.Categories {
		rows = append(rows, []string{
			label(c.Category),
			string(c.Mode),
			report.FormatAmount(c.Budget),
			report.FormatAmount(c.PartyA),
			report.FormatAmount(c.PartyB),
		})
		total += c.Budget
	}
	rows = append(rows,
		[]string{cli.SeparatorRow},
		[]string{
			"Total",
			"",
			report.FormatAmount(total),
			fmt.Sprintf("%s (%d%%)", report.FormatAmount(res.PartyATotal), res.PartyAPercent),
			fmt.Sprintf("%s (%d%%)", report.FormatAmount(res.PartyBTotal), res.PartyBPercent),
		})
	return rows
}

// parseSplitModes parses repeated category=mode pairs.
func parseSplitModes(pairs []string) (map[core.Category]budget.SplitMode, error) {
	modes := make(map[core.Category]budget.SplitMode, len(pairs))
	for _, p := range pairs {
		rawCat, rawMode, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected category=mode, got %q", p)
		}
		c, err := core.ParseCategory(rawCat)
		if err != nil {
			return nil, err
		}
		m, err := budget.ParseSplitMode(rawMode)
		if err != nil {
			return nil, err
		}
		modes[c] = m
	}
	return modes, nil
}

func runBalances(cmd *cobra.Command, _ []string) error {
	if balanceDays < 0 {
		return errors.New("--window must not be negative")
	}
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		balances, err := s.ledger.Balances(ctx, userID, balanceDays)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(balances) == 0 {
			fmt.Fprintln(out, cli.Muted("\n  No outstanding balances."))
			return nil
		}

		var total core.Money
		for _, b := range balances {
			total += b.Amount
		}
		title := fmt.Sprintf("Outstanding balances (%d, %s)", len(balances), report.FormatAmount(total))
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderTable(cli.Table{
			Title:   title,
			Headers: []string{"Title", "Category", "Amount", "Due", "Days left"},
			Rows:    balanceRows(balances),
		}))
		return nil
	})
}

func balanceRows(balances []budget.BalanceDue) [][]string {
	rows := make([][]string, 0, len(balances))
	for _, b := range balances {
		due, days := "-", "-"
		if !b.DueDate.IsEmpty() {
			due = b.DueDate.String()
			days = strconv.Itoa(b.DaysLeft)
			switch {
			case b.Overdue:
				days = cli.Error(days + " overdue")
			case b.DaysLeft <= 3:
				days = cli.Warn(days)
			}
		}
		rows = append(rows, []string{b.Title, string(b.Category), report.FormatAmount(b.Amount), due, days})
	}
	return rows
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		if s.cfg.GoogleSpreadsheetID == "" {
			return errors.New("GOOGLE_SPREADSHEET_ID is not set")
		}
		exporter, err := cli.NewSheetsExporter(ctx, s.cfg, s.logger)
		if err != nil {
			return err
		}
		r, err := s.ledger.Report(ctx, userID)
		if err != nil {
			return err
		}
		if err := exporter.WriteReport(ctx, r); err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.OK(fmt.Sprintf("  Exported %d categories and %d items for %s", len(r.Categories), len(r.Items), userID)))
		return nil
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	var version uint
	if migrateStatus {
		version, err = storage.SchemaVersion(cfg.SQLiteDBPath)
	} else {
		version, err = storage.RunMigrations(cfg.SQLiteDBPath)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s schema version %d\n", cfg.SQLiteDBPath, version)
	return nil
}
