package worker

import (
	"context"
	"fmt"

	"wedplan/internal/amqp"
	"wedplan/internal/budget"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/report"
	"wedplan/internal/sheets"
)

// ReportSource builds the current report for one ledger.
type ReportSource interface {
	Report(ctx context.Context, userID string) (report.Report, error)
}

// UserLister enumerates every ledger owner.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// ExportWorker mirrors ledgers into an external spreadsheet. It reacts to
// ledger.changed by rewriting the owner's report and to balance.due by
// appending a reminder row.
type ExportWorker struct {
	source    ReportSource
	reports   sheets.ReportWriter
	reminders sheets.ReminderWriter
	metrics   *metrics.Metrics
	logger    *log.Logger
}

func NewExportWorker(
	source ReportSource,
	reports sheets.ReportWriter,
	reminders sheets.ReminderWriter,
	m *metrics.Metrics,
	logger *log.Logger,
) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		source:    source,
		reports:   reports,
		reminders: reminders,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Handlers returns the AMQP dispatch table for this worker.
func (w *ExportWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		LedgerChanged: w.HandleLedgerChanged,
		BalanceDue:    w.HandleBalanceDue,
	}
}

// HandleLedgerChanged re-exports the owner's full report. Messages carry no
// state, so replays and out-of-order deliveries converge on the latest ledger.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg amqp.LedgerChanged) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldUserID, msg.UserID,
		log.FieldOperation, msg.Operation,
		log.FieldItemID, msg.ItemID)

	if err := w.Export(ctx, msg.UserID); err != nil {
		w.metrics.Message(amqp.TypeLedgerChanged, metrics.OutcomeError)
		return err
	}
	w.metrics.Message(amqp.TypeLedgerChanged, metrics.OutcomeSuccess)
	return nil
}

// HandleBalanceDue records a reminder for an outstanding balance.
func (w *ExportWorker) HandleBalanceDue(ctx context.Context, b budget.BalanceDue) error {
	if w.reminders == nil {
		w.logger.WarnContext(ctx, "No reminder writer configured, skipping reminder",
			log.FieldItemID, b.ItemID)
		return nil
	}
	if err := w.reminders.AppendReminder(ctx, b); err != nil {
		w.metrics.Message(amqp.TypeBalanceDue, metrics.OutcomeError)
		w.logger.ErrorContext(ctx, "Failed to record reminder",
			log.FieldError, err,
			log.FieldUserID, b.UserID,
			log.FieldItemID, b.ItemID)
		return fmt.Errorf("append reminder: %w", err)
	}
	w.metrics.Message(amqp.TypeBalanceDue, metrics.OutcomeSuccess)
	return nil
}

// Export builds and writes the report for one user.
func (w *ExportWorker) Export(ctx context.Context, userID string) error {
	r, err := w.source.Report(ctx, userID)
	if err != nil {
		w.metrics.ReportExport(metrics.OutcomeError)
		return fmt.Errorf("build report: %w", err)
	}
	if err := w.reports.WriteReport(ctx, r); err != nil {
		w.metrics.ReportExport(metrics.OutcomeError)
		w.logger.ErrorContext(ctx, "Failed to export report",
			log.FieldError, err,
			log.FieldUserID, userID)
		return fmt.Errorf("write report: %w", err)
	}
	w.metrics.ReportExport(metrics.OutcomeSuccess)
	return nil
}

// StartupExport re-exports every known ledger so changes made while the
// worker was down are not lost.
func (w *ExportWorker) StartupExport(ctx context.Context, users UserLister) error {
	ids, err := users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users for startup export: %w", err)
	}
	if len(ids) == 0 {
		w.logger.InfoContext(ctx, "No ledgers found on startup")
		return nil
	}

	successCount, errorCount := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.Export(ctx, id); err != nil {
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup export completed",
		"total", len(ids),
		"exported", successCount,
		"errors", errorCount)
	return nil
}
