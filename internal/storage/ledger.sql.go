package storage

import (
	"context"
	"database/sql"
)

const getSettings = `
SELECT user_id, region, guest_count, total_budget, updated_at
FROM budget_settings
WHERE user_id = ?
`

func (q *Queries) GetSettings(ctx context.Context, userID string) (BudgetSetting, error) {
	row := q.db.QueryRowContext(ctx, getSettings, userID)
	var i BudgetSetting
	err := row.Scan(
		&i.UserID,
		&i.Region,
		&i.GuestCount,
		&i.TotalBudget,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertSettings = `
INSERT INTO budget_settings (user_id, region, guest_count, total_budget, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    region = excluded.region,
    guest_count = excluded.guest_count,
    total_budget = excluded.total_budget,
    updated_at = excluded.updated_at
`

type UpsertSettingsParams struct {
	UserID      string
	Region      string
	GuestCount  int64
	TotalBudget int64
	UpdatedAt   int64
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		arg.UserID,
		arg.Region,
		arg.GuestCount,
		arg.TotalBudget,
		arg.UpdatedAt,
	)
	return err
}

const listCategoryBudgets = `
SELECT user_id, category, amount
FROM category_budgets
WHERE user_id = ?
ORDER BY category
`

func (q *Queries) ListCategoryBudgets(ctx context.Context, userID string) ([]CategoryBudget, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryBudget
	for rows.Next() {
		var i CategoryBudget
		if err := rows.Scan(&i.UserID, &i.Category, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCategoryBudgets = `
DELETE FROM category_budgets WHERE user_id = ?
`

func (q *Queries) DeleteCategoryBudgets(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteCategoryBudgets, userID)
	return err
}

const insertCategoryBudget = `
INSERT INTO category_budgets (user_id, category, amount)
VALUES (?, ?, ?)
`

type InsertCategoryBudgetParams struct {
	UserID   string
	Category string
	Amount   int64
}

func (q *Queries) InsertCategoryBudget(ctx context.Context, arg InsertCategoryBudgetParams) error {
	_, err := q.db.ExecContext(ctx, insertCategoryBudget, arg.UserID, arg.Category, arg.Amount)
	return err
}

const itemColumns = `id, user_id, category, title, amount, paid_by, item_date, memo,
    has_balance, balance_amount, balance_due_date, payment_stage, payment_method,
    created_at, updated_at`

const listItemsByUser = `
SELECT ` + itemColumns + `
FROM budget_items
WHERE user_id = ?
ORDER BY item_date, created_at, rowid
`

func (q *Queries) ListItemsByUser(ctx context.Context, userID string) ([]BudgetItem, error) {
	rows, err := q.db.QueryContext(ctx, listItemsByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

const getItem = `
SELECT ` + itemColumns + `
FROM budget_items
WHERE user_id = ? AND id = ?
`

type GetItemParams struct {
	UserID string
	ID     string
}

func (q *Queries) GetItem(ctx context.Context, arg GetItemParams) (BudgetItem, error) {
	row := q.db.QueryRowContext(ctx, getItem, arg.UserID, arg.ID)
	var i BudgetItem
	err := scanItem(row, &i)
	return i, err
}

const insertItem = `
INSERT INTO budget_items (` + itemColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertItem(ctx context.Context, arg BudgetItem) error {
	_, err := q.db.ExecContext(ctx, insertItem,
		arg.ID,
		arg.UserID,
		arg.Category,
		arg.Title,
		arg.Amount,
		arg.PaidBy,
		arg.ItemDate,
		arg.Memo,
		arg.HasBalance,
		arg.BalanceAmount,
		arg.BalanceDueDate,
		arg.PaymentStage,
		arg.PaymentMethod,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateItem = `
UPDATE budget_items SET
    category = ?,
    title = ?,
    amount = ?,
    paid_by = ?,
    item_date = ?,
    memo = ?,
    has_balance = ?,
    balance_amount = ?,
    balance_due_date = ?,
    payment_stage = ?,
    payment_method = ?,
    updated_at = ?
WHERE user_id = ? AND id = ?
`

// UpdateItem returns the number of rows changed.
func (q *Queries) UpdateItem(ctx context.Context, arg BudgetItem) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateItem,
		arg.Category,
		arg.Title,
		arg.Amount,
		arg.PaidBy,
		arg.ItemDate,
		arg.Memo,
		arg.HasBalance,
		arg.BalanceAmount,
		arg.BalanceDueDate,
		arg.PaymentStage,
		arg.PaymentMethod,
		arg.UpdatedAt,
		arg.UserID,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteItem = `
DELETE FROM budget_items WHERE user_id = ? AND id = ?
`

type DeleteItemParams struct {
	UserID string
	ID     string
}

func (q *Queries) DeleteItem(ctx context.Context, arg DeleteItemParams) error {
	_, err := q.db.ExecContext(ctx, deleteItem, arg.UserID, arg.ID)
	return err
}

const listOpenBalances = `
SELECT ` + itemColumns + `
FROM budget_items
WHERE has_balance = 1 AND balance_amount > 0
ORDER BY balance_due_date, user_id, id
`

func (q *Queries) ListOpenBalances(ctx context.Context) ([]BudgetItem, error) {
	rows, err := q.db.QueryContext(ctx, listOpenBalances)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

const listUsers = `
SELECT user_id FROM budget_settings
UNION
SELECT user_id FROM budget_items
ORDER BY user_id
`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		items = append(items, userID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner, i *BudgetItem) error {
	return row.Scan(
		&i.ID,
		&i.UserID,
		&i.Category,
		&i.Title,
		&i.Amount,
		&i.PaidBy,
		&i.ItemDate,
		&i.Memo,
		&i.HasBalance,
		&i.BalanceAmount,
		&i.BalanceDueDate,
		&i.PaymentStage,
		&i.PaymentMethod,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func scanItems(rows *sql.Rows) ([]BudgetItem, error) {
	defer rows.Close()
	var items []BudgetItem
	for rows.Next() {
		var i BudgetItem
		if err := scanItem(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
