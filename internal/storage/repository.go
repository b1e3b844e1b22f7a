package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wedplan/internal/core"
	"wedplan/internal/log"
	"wedplan/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists ledgers in a local SQLite file. It implements
// sheets.LedgerStore and sheets.BalanceScanner.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) FetchSettings(ctx context.Context, userID string) (core.BudgetSettings, error) {
	row, err := r.queries.GetSettings(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetSettings{}, sheets.ErrNotFound
	}
	if err != nil {
		return core.BudgetSettings{}, fmt.Errorf("get settings: %w", err)
	}

	budgets, err := r.queries.ListCategoryBudgets(ctx, userID)
	if err != nil {
		return core.BudgetSettings{}, fmt.Errorf("list category budgets: %w", err)
	}

	s := core.BudgetSettings{
		UserID:          row.UserID,
		Region:          core.Region(row.Region),
		GuestCount:      int(row.GuestCount),
		TotalBudget:     core.Money(row.TotalBudget),
		CategoryBudgets: make(map[core.Category]core.Money, len(budgets)),
		UpdatedAt:       fromUnixNano(row.UpdatedAt),
	}
	for _, b := range budgets {
		s.CategoryBudgets[core.Category(b.Category)] = core.Money(b.Amount)
	}
	return s, nil
}

// UpsertSettings replaces the settings row and every category allocation in
// one transaction.
func (r *SQLiteRepository) UpsertSettings(ctx context.Context, s core.BudgetSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertSettings(ctx, UpsertSettingsParams{
		UserID:      s.UserID,
		Region:      string(s.Region),
		GuestCount:  int64(s.GuestCount),
		TotalBudget: s.TotalBudget.Int64(),
		UpdatedAt:   toUnixNano(s.UpdatedAt),
	}); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	if err := q.DeleteCategoryBudgets(ctx, s.UserID); err != nil {
		return fmt.Errorf("clear category budgets: %w", err)
	}
	for _, c := range core.AllCategories() {
		amount, ok := s.CategoryBudgets[c]
		if !ok {
			continue
		}
		if err := q.InsertCategoryBudget(ctx, InsertCategoryBudgetParams{
			UserID:   s.UserID,
			Category: string(c),
			Amount:   amount.Int64(),
		}); err != nil {
			return fmt.Errorf("insert budget for %s: %w", c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	r.logger.DebugContext(ctx, "Settings saved", log.FieldUserID, s.UserID, log.FieldRegion, s.Region)
	return nil
}

func (r *SQLiteRepository) FetchItems(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	rows, err := r.queries.ListItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return toDomainItems(rows)
}

func (r *SQLiteRepository) GetItem(ctx context.Context, userID, id string) (core.BudgetItem, error) {
	row, err := r.queries.GetItem(ctx, GetItemParams{UserID: userID, ID: id})
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetItem{}, sheets.ErrNotFound
	}
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("get item: %w", err)
	}
	return toDomainItem(row)
}

func (r *SQLiteRepository) InsertItem(ctx context.Context, it core.BudgetItem) error {
	if err := r.queries.InsertItem(ctx, fromDomainItem(it)); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	r.logger.DebugContext(ctx, "Item inserted", log.FieldUserID, it.UserID, log.FieldItemID, it.ID)
	return nil
}

func (r *SQLiteRepository) UpdateItem(ctx context.Context, it core.BudgetItem) error {
	n, err := r.queries.UpdateItem(ctx, fromDomainItem(it))
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n == 0 {
		return sheets.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, userID, id string) error {
	if err := r.queries.DeleteItem(ctx, DeleteItemParams{UserID: userID, ID: id}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ListOpenBalances returns every item, across all users, that still has a
// positive balance to pay.
func (r *SQLiteRepository) ListOpenBalances(ctx context.Context) ([]core.BudgetItem, error) {
	rows, err := r.queries.ListOpenBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open balances: %w", err)
	}
	return toDomainItems(rows)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func fromDomainItem(it core.BudgetItem) BudgetItem {
	row := BudgetItem{
		ID:            it.ID,
		UserID:        it.UserID,
		Category:      string(it.Category),
		Title:         it.Title,
		Amount:        it.Amount.Int64(),
		PaidBy:        string(it.PaidBy),
		ItemDate:      it.ItemDate.String(),
		Memo:          it.Memo,
		HasBalance:    it.HasBalance,
		BalanceAmount: it.BalanceAmount.Int64(),
		PaymentStage:  string(it.PaymentStage),
		PaymentMethod: string(it.PaymentMethod),
		CreatedAt:     toUnixNano(it.CreatedAt),
		UpdatedAt:     toUnixNano(it.UpdatedAt),
	}
	if !it.BalanceDueDate.IsEmpty() {
		row.BalanceDueDate = sql.NullString{String: it.BalanceDueDate.String(), Valid: true}
	}
	return row
}

func toDomainItem(row BudgetItem) (core.BudgetItem, error) {
	itemDate, err := core.ParseDate(row.ItemDate)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("item %s: %w", row.ID, err)
	}
	var due core.Date
	if row.BalanceDueDate.Valid {
		if due, err = core.ParseDate(row.BalanceDueDate.String); err != nil {
			return core.BudgetItem{}, fmt.Errorf("item %s balance due: %w", row.ID, err)
		}
	}
	return core.BudgetItem{
		ID:             row.ID,
		UserID:         row.UserID,
		Category:       core.Category(row.Category),
		Title:          row.Title,
		Amount:         core.Money(row.Amount),
		PaidBy:         core.Payer(row.PaidBy),
		ItemDate:       itemDate,
		Memo:           row.Memo,
		HasBalance:     row.HasBalance,
		BalanceAmount:  core.Money(row.BalanceAmount),
		BalanceDueDate: due,
		PaymentStage:   core.PaymentStage(row.PaymentStage),
		PaymentMethod:  core.PaymentMethod(row.PaymentMethod),
		CreatedAt:      fromUnixNano(row.CreatedAt),
		UpdatedAt:      fromUnixNano(row.UpdatedAt),
	}, nil
}

func toDomainItems(rows []BudgetItem) ([]core.BudgetItem, error) {
	items := make([]core.BudgetItem, 0, len(rows))
	for _, row := range rows {
		it, err := toDomainItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
