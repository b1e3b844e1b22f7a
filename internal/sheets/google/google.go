package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"wedplan/internal/budget"
	"wedplan/internal/log"
	"wedplan/internal/report"
	ports "wedplan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultReportPrefix   = "Ledger"
	defaultRemindersSheet = "Reminders"

	// Sheets rejects tab titles longer than this.
	maxSheetTitle = 100
)

// Config selects the spreadsheet and credentials used by the exporter.
type Config struct {
	SpreadsheetID string

	// CredentialsJSON takes precedence over CredentialsFile. With neither set
	// the client falls back to application default credentials.
	CredentialsJSON string
	CredentialsFile string

	// ReportSheetPrefix names the per-user report tabs ("<prefix> <user>").
	ReportSheetPrefix string
	RemindersSheet    string
}

// sheetAPI is the slice of the Sheets API the exporter uses.
type sheetAPI interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddSheet(ctx context.Context, spreadsheetID, title string) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Write(ctx context.Context, spreadsheetID string, data []*gsheet.ValueRange) error
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// Client exports ledger reports and balance reminders to a Google spreadsheet.
type Client struct {
	api            sheetAPI
	spreadsheetID  string
	reportPrefix   string
	remindersSheet string
	logger         *log.Logger
	now            func() time.Time

	mu    sync.Mutex
	known map[string]bool
}

// Ensure interface conformance
var (
	_ ports.ReportWriter   = (*Client)(nil)
	_ ports.ReminderWriter = (*Client)(nil)
)

// NewClient creates a Sheets exporter using service account credentials.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceAPI{svc: svc}, cfg, logger), nil
}

func newClient(api sheetAPI, cfg Config, logger *log.Logger) *Client {
	prefix := strings.TrimSpace(cfg.ReportSheetPrefix)
	if prefix == "" {
		prefix = defaultReportPrefix
	}
	reminders := strings.TrimSpace(cfg.RemindersSheet)
	if reminders == "" {
		reminders = defaultRemindersSheet
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		api:            api,
		spreadsheetID:  strings.TrimSpace(cfg.SpreadsheetID),
		reportPrefix:   prefix,
		remindersSheet: reminders,
		logger:         logger,
		now:            time.Now,
		known:          make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service from inline JSON, a key file,
// or application default credentials, in that order.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Using service account file", "path", cfg.CredentialsFile)
		opts = append(opts, goption.WithCredentialsJSON(credentialsJSON))
	default:
		logger.InfoContext(ctx, "Using application default credentials")
	}

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteReport replaces the user's report tab with r.
func (c *Client) WriteReport(ctx context.Context, r report.Report) error {
	title := c.reportSheetName(r.UserID)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	if err := c.api.Clear(ctx, c.spreadsheetID, quoteSheet(title)); err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}

	values := reportValues(r)
	data := []*gsheet.ValueRange{{
		Range:  quoteSheet(title) + "!A1",
		Values: values,
	}}
	if err := c.api.Write(ctx, c.spreadsheetID, data); err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Report exported",
		log.FieldUserID, r.UserID,
		"sheet", title,
		"rows", len(values))
	return nil
}

// AppendReminder adds one row to the reminders tab.
func (c *Client) AppendReminder(ctx context.Context, b budget.BalanceDue) error {
	if err := c.ensureSheet(ctx, c.remindersSheet); err != nil {
		return err
	}

	rows := [][]any{reminderRow(b, c.now())}
	if c.isNew(c.remindersSheet) {
		rows = append([][]any{reminderHeader()}, rows...)
	}
	rng := quoteSheet(c.remindersSheet) + "!A:I"
	if err := c.api.Append(ctx, c.spreadsheetID, rng, rows); err != nil {
		return fmt.Errorf("append reminder: %w", err)
	}

	c.logger.InfoContext(ctx, "Reminder appended",
		log.FieldUserID, b.UserID,
		log.FieldItemID, b.ItemID,
		"due_date", b.DueDate.String())
	return nil
}

// ensureSheet creates the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.known[title]; ok {
		return nil
	}

	titles, err := c.api.SheetTitles(ctx, c.spreadsheetID)
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	for _, t := range titles {
		if _, ok := c.known[t]; !ok {
			c.known[t] = false
		}
	}
	if _, ok := c.known[title]; ok {
		return nil
	}

	if err := c.api.AddSheet(ctx, c.spreadsheetID, title); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	// true marks a tab created by this client that has no header yet
	c.known[title] = true
	c.logger.InfoContext(ctx, "Sheet created", "sheet", title)
	return nil
}

// isNew reports whether title was created by this client and clears the flag.
func (c *Client) isNew(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.known[title]
	if fresh {
		c.known[title] = false
	}
	return fresh
}

func (c *Client) reportSheetName(userID string) string {
	return sheetTitle(c.reportPrefix + " " + userID)
}

// sheetTitle strips characters Sheets does not allow in tab titles.
func sheetTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if runes := []rune(s); len(runes) > maxSheetTitle {
		s = string(runes[:maxSheetTitle])
	}
	return s
}

// quoteSheet quotes a title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func reportValues(r report.Report) [][]any {
	var rows [][]any
	rows = append(rows,
		[]any{"Wedding budget report"},
		[]any{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
	)
	for _, f := range r.Facts() {
		rows = append(rows, []any{f[0], f[1]})
	}

	rows = append(rows, []any{})
	rows = appendTable(rows, r.Table())

	rows = append(rows, []any{}, []any{"Paid by", "Amount", "Share"})
	for _, p := range r.Payers {
		rows = append(rows, []any{string(p.Payer), report.FormatAmount(p.Amount), report.FormatPercent(p.Percent)})
	}

	rows = append(rows, []any{})
	rows = appendTable(rows, r.ItemTable())

	if len(r.Warnings) > 0 {
		rows = append(rows, []any{}, []any{"Warnings"})
		for _, w := range r.Warnings {
			rows = append(rows, []any{w})
		}
	}
	return rows
}

func appendTable(rows [][]any, table [][]string) [][]any {
	for _, line := range table {
		row := make([]any, len(line))
		for i, cell := range line {
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return rows
}

func reminderHeader() []any {
	return []any{"Sent", "User", "Item", "Title", "Category", "Balance", "Due", "Days left", "Overdue"}
}

func reminderRow(b budget.BalanceDue, sent time.Time) []any {
	overdue := "no"
	if b.Overdue {
		overdue = "yes"
	}
	return []any{
		sent.UTC().Format(time.RFC3339),
		b.UserID,
		b.ItemID,
		b.Title,
		string(b.Category),
		report.FormatAmount(b.Amount),
		b.DueDate.String(),
		b.DaysLeft,
		overdue,
	}
}

// serviceAPI adapts the generated Sheets client to sheetAPI.
type serviceAPI struct {
	svc *gsheet.Service
}

func (s *serviceAPI) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (s *serviceAPI) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *serviceAPI) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s *serviceAPI) Write(ctx context.Context, spreadsheetID string, data []*gsheet.ValueRange) error {
	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := s.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *serviceAPI) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
