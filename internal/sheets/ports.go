package sheets

import (
	"context"
	"errors"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/report"
)

// ErrNotFound is returned by stores when a record does not exist for the user.
var ErrNotFound = errors.New("not found")

// Ports for the storage and export adapters.
type (
	SettingsStore interface {
		// FetchSettings returns ErrNotFound when the user has never saved settings.
		FetchSettings(ctx context.Context, userID string) (core.BudgetSettings, error)
		UpsertSettings(ctx context.Context, s core.BudgetSettings) error
	}

	ItemStore interface {
		// FetchItems returns the user's items ordered by item date, then creation time.
		FetchItems(ctx context.Context, userID string) ([]core.BudgetItem, error)
		GetItem(ctx context.Context, userID, id string) (core.BudgetItem, error)
		InsertItem(ctx context.Context, it core.BudgetItem) error
		// UpdateItem replaces the item matching it.ID and it.UserID, or returns ErrNotFound.
		UpdateItem(ctx context.Context, it core.BudgetItem) error
		// DeleteItem succeeds when the item does not exist.
		DeleteItem(ctx context.Context, userID, id string) error
	}

	// LedgerStore is the full storage collaborator of the ledger service.
	LedgerStore interface {
		SettingsStore
		ItemStore
	}

	// BalanceScanner reads across every ledger for the reminder processor.
	BalanceScanner interface {
		ListOpenBalances(ctx context.Context) ([]core.BudgetItem, error)
		ListUsers(ctx context.Context) ([]string, error)
	}

	ReportWriter interface {
		WriteReport(ctx context.Context, r report.Report) error
	}

	ReminderWriter interface {
		AppendReminder(ctx context.Context, b budget.BalanceDue) error
	}
)
