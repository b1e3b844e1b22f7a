package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wedplan/internal/cli"
	"wedplan/internal/core"
	"wedplan/internal/report"
	"wedplan/internal/services"
)

var (
	settingsRegion  string
	settingsGuests  int
	settingsTotal   string
	settingsBudgets []string

	itemCategory string
	itemTitle    string
	itemAmount   string
	itemPaidBy   string
	itemDate     string
	itemMemo     string
	itemBalance  string
	itemDue      string
	itemStage    string
	itemMethod   string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update the budget plan",
	Long: "Without flags, prints the saved plan. With flags, updates the given fields and keeps the rest.\n" +
		"Category budgets are given as --budget venue=15,000,000 and may be repeated.",
	RunE: runSettings,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget vs. spend per category",
	RunE:  runSummary,
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List recorded expenses",
	RunE:  runItems,
}

var addItemCmd = &cobra.Command{
	Use:   "add-item",
	Short: "Record an expense",
	RunE:  runAddItem,
}

var deleteItemCmd = &cobra.Command{
	Use:   "delete-item <id>",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteItem,
}

func init() {
	settingsCmd.Flags().StringVar(&settingsRegion, "region", "", "Region key for regional averages")
	settingsCmd.Flags().IntVar(&settingsGuests, "guests", 0, "Guest count")
	settingsCmd.Flags().StringVar(&settingsTotal, "total", "", "Total budget")
	settingsCmd.Flags().StringArrayVar(&settingsBudgets, "budget", nil, "Category budget as category=amount")

	addItemCmd.Flags().StringVarP(&itemCategory, "category", "c", "", "Category (default venue)")
	addItemCmd.Flags().StringVarP(&itemTitle, "title", "t", "", "Title")
	addItemCmd.Flags().StringVarP(&itemAmount, "amount", "a", "", "Amount paid")
	addItemCmd.Flags().StringVar(&itemPaidBy, "paid-by", "", "Payer: party_a, party_b or shared (default shared)")
	addItemCmd.Flags().StringVar(&itemDate, "date", "", "Item date YYYY-MM-DD (default today)")
	addItemCmd.Flags().StringVar(&itemMemo, "memo", "", "Free-form memo")
	addItemCmd.Flags().StringVar(&itemBalance, "balance", "", "Outstanding balance still owed")
	addItemCmd.Flags().StringVar(&itemDue, "due", "", "Balance due date YYYY-MM-DD")
	addItemCmd.Flags().StringVar(&itemStage, "stage", "", "Payment stage: deposit, contract or full (default full)")
	addItemCmd.Flags().StringVar(&itemMethod, "method", "", "Payment method: card, cash, transfer or check (default card)")
	_ = addItemCmd.MarkFlagRequired("title")
	_ = addItemCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(settingsCmd, summaryCmd, itemsCmd, addItemCmd, deleteItemCmd)
}

func runSettings(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		st, err := s.ledger.Settings(ctx, userID)
		if err != nil {
			return err
		}

		if settingsFlagsChanged(cmd) {
			in := services.SettingsInput{
				Region:          st.Region,
				GuestCount:      st.GuestCount,
				TotalBudget:     st.TotalBudget,
				CategoryBudgets: st.CategoryBudgets,
			}
			if err := applySettingsFlags(cmd, &in); err != nil {
				return err
			}
			if st, err = s.ledger.SaveSettings(ctx, userID, in); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.RenderTitle("BUDGET PLAN  "+userID))
		fmt.Fprintln(out)
		rows := [][]string{
			{"Region", regionLabel(s, st.Region)},
			{"Guests", strconv.Itoa(st.GuestCount)},
			{"Total budget", report.FormatAmount(st.TotalBudget)},
		}
		for _, c := range core.AllCategories() {
			rows = append(rows, []string{s.ref.Label(c), report.FormatAmount(st.Budget(c))})
		}
		rows = append(rows, []string{"Allocated vs total", report.FormatDelta(st.AllocationDelta())})
		fmt.Fprint(out, cli.RenderTable(cli.Table{Headers: []string{"Setting", "Value"}, Rows: rows}))
		return nil
	})
}

func settingsFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"region", "guests", "total", "budget"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func regionLabel(s *session, region core.Region) string {
	if avg, ok := s.ref.Regional(region); ok && avg.Label != "" {
		return avg.Label
	}
	if region == "" {
		return "-"
	}
	return string(region)
}

func applySettingsFlags(cmd *cobra.Command, in *services.SettingsInput) error {
	flags := cmd.Flags()
	if flags.Changed("region") {
		in.Region = core.Region(strings.TrimSpace(settingsRegion))
	}
	if flags.Changed("guests") {
		in.GuestCount = settingsGuests
	}
	if flags.Changed("total") {
		total, err := core.ParseAmount(settingsTotal)
		if err != nil {
			return fmt.Errorf("--total: %w", err)
		}
		in.TotalBudget = total
	}
	if len(settingsBudgets) > 0 {
		budgets, err := parseCategoryAmounts(settingsBudgets)
		if err != nil {
			return err
		}
		merged := make(map[core.Category]core.Money, len(in.CategoryBudgets)+len(budgets))
		for c, m := range in.CategoryBudgets {
			merged[c] = m
		}
		for c, m := range budgets {
			merged[c] = m
		}
		in.CategoryBudgets = merged
	}
	return nil
}

func runSummary(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		r, err := s.ledger.Report(ctx, userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.RenderTitle("WEDDING BUDGET  "+userID))
		fmt.Fprintln(out)

		facts := make([][]string, 0, len(r.Facts()))
		for _, f := range r.Facts() {
			facts = append(facts, []string{f[0], f[1]})
		}
		fmt.Fprint(out, cli.RenderTable(cli.Table{Rows: facts}))
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderTable(tableFromRows("Categories", withTotalSeparator(r.Table()))))

		if len(r.Payers) > 0 {
			rows := make([][]string, 0, len(r.Payers))
			for _, p := range r.Payers {
				rows = append(rows, []string{string(p.Payer), report.FormatAmount(p.Amount), report.FormatPercent(p.Percent)})
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.RenderTable(cli.Table{Title: "Paid by", Headers: []string{"Payer", "Amount", "Share"}, Rows: rows}))
		}

		if len(r.Warnings) > 0 {
			fmt.Fprintln(out)
			for _, w := range r.Warnings {
				fmt.Fprintln(out, cli.Warn("  ! "+w))
			}
		}
		return nil
	})
}

func runItems(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		items, err := s.ledger.Items(ctx, userID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, cli.Muted("\n  No items recorded."))
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Items (%d)", len(items)),
			Headers: []string{"ID", "Date", "Category", "Title", "Amount", "Paid by", "Balance", "Due"},
			Rows:    itemRows(items),
		}))
		return nil
	})
}

func runAddItem(cmd *cobra.Command, _ []string) error {
	in, err := itemInputFromFlags()
	if err != nil {
		return err
	}
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		it, err := s.ledger.AddItem(ctx, userID, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.OK(fmt.Sprintf("  Added %s %q (%s) on %s", it.ID, it.Title, report.FormatAmount(it.Amount), it.ItemDate)))
		return nil
	})
}

func runDeleteItem(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	return withLedger(cmd, func(ctx context.Context, s *session, userID string) error {
		if err := s.ledger.DeleteItem(ctx, userID, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.OK("  Deleted "+id))
		return nil
	})
}

func itemInputFromFlags() (services.ItemInput, error) {
	amount, err := core.ParseAmount(itemAmount)
	if err != nil {
		return services.ItemInput{}, fmt.Errorf("--amount: %w", err)
	}
	in := services.ItemInput{
		Category:      core.Category(enumFlag(itemCategory)),
		Title:         itemTitle,
		Amount:        amount,
		PaidBy:        core.Payer(enumFlag(itemPaidBy)),
		Memo:          itemMemo,
		PaymentStage:  core.PaymentStage(enumFlag(itemStage)),
		PaymentMethod: core.PaymentMethod(enumFlag(itemMethod)),
	}
	if itemDate != "" {
		if in.ItemDate, err = core.ParseDate(itemDate); err != nil {
			return services.ItemInput{}, fmt.Errorf("--date: %w", err)
		}
	}
	if itemBalance != "" {
		if in.BalanceAmount, err = core.ParseAmount(itemBalance); err != nil {
			return services.ItemInput{}, fmt.Errorf("--balance: %w", err)
		}
		in.HasBalance = in.BalanceAmount > 0
	}
	if itemDue != "" {
		if in.BalanceDueDate, err = core.ParseDate(itemDue); err != nil {
			return services.ItemInput{}, fmt.Errorf("--due: %w", err)
		}
	}
	return in, nil
}

func enumFlag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseCategoryAmounts parses repeated category=amount pairs.
func parseCategoryAmounts(pairs []string) (map[core.Category]core.Money, error) {
	out := make(map[core.Category]core.Money, len(pairs))
	for _, p := range pairs {
		rawCat, rawAmount, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected category=amount, got %q", p)
		}
		c, err := core.ParseCategory(rawCat)
		if err != nil {
			return nil, err
		}
		m, err := core.ParseAmount(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		out[c] = m
	}
	return out, nil
}

func itemRows(items []core.BudgetItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		balance, due := "", ""
		if it.HasBalance && it.BalanceAmount > 0 {
			balance = report.FormatAmount(it.BalanceAmount)
			due = it.BalanceDueDate.String()
		}
		rows = append(rows, []string{
			it.ID,
			it.ItemDate.String(),
			string(it.Category),
			it.Title,
			report.FormatAmount(it.Amount),
			string(it.PaidBy),
			balance,
			due,
		})
	}
	return rows
}

// tableFromRows splits a header-first row set into a cli.Table.
func tableFromRows(title string, rows [][]string) cli.Table {
	t := cli.Table{Title: title}
	if len(rows) == 0 {
		return t
	}
	t.Headers = rows[0]
	t.Rows = rows[1:]
	return t
}

// withTotalSeparator puts a rule above the trailing total row.
func withTotalSeparator(rows [][]string) [][]string {
	if len(rows) < 3 {
		return rows
	}
	out := make([][]string, 0, len(rows)+1)
	out = append(out, rows[:len(rows)-1]...)
	out = append(out, []string{cli.SeparatorRow}, rows[len(rows)-1])
	return out
}
