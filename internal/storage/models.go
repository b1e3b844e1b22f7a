package storage

import (
	"database/sql"
)

type BudgetSetting struct {
	UserID      string
	Region      string
	GuestCount  int64
	TotalBudget int64
	UpdatedAt   int64
}

type CategoryBudget struct {
	UserID   string
	Category string
	Amount   int64
}

type BudgetItem struct {
	ID             string
	UserID         string
	Category       string
	Title          string
	Amount         int64
	PaidBy         string
	ItemDate       string
	Memo           string
	HasBalance     bool
	BalanceAmount  int64
	BalanceDueDate sql.NullString
	PaymentStage   string
	PaymentMethod  string
	CreatedAt      int64
	UpdatedAt      int64
}
