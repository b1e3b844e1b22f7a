package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/sheets"
)

// BalancePublisher announces balances that need attention.
type BalancePublisher interface {
	PublishBalanceDue(ctx context.Context, b budget.BalanceDue) error
}

// BalanceReminderConfig holds configuration for the reminder processor
type BalanceReminderConfig struct {
	// Interval is how often open balances are scanned (default: 1h)
	Interval time.Duration

	// WindowDays limits reminders to balances due within this many days (default: 14)
	WindowDays int

	// UrgentDays switches a balance to daily reminders (default: 3)
	UrgentDays int
}

// DefaultBalanceReminderConfig returns sensible defaults
func DefaultBalanceReminderConfig() BalanceReminderConfig {
	return BalanceReminderConfig{
		Interval:   time.Hour,
		WindowDays: 14,
		UrgentDays: 3,
	}
}

// BalanceReminderProcessor periodically scans every ledger for outstanding
// balances and publishes a balance.due message per balance that is due a
// reminder.
type BalanceReminderProcessor struct {
	scanner   sheets.BalanceScanner
	publisher BalancePublisher
	config    BalanceReminderConfig
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time

	// last reminder per balance, keyed by item id and due date
	sentMu sync.Mutex
	sent   map[string]time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewBalanceReminderProcessor(
	scanner sheets.BalanceScanner,
	publisher BalancePublisher,
	config BalanceReminderConfig,
	m *metrics.Metrics,
	logger *log.Logger,
) *BalanceReminderProcessor {
	defaults := DefaultBalanceReminderConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.WindowDays < 0 {
		config.WindowDays = defaults.WindowDays
	}
	if config.UrgentDays < 0 {
		config.UrgentDays = defaults.UrgentDays
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &BalanceReminderProcessor{
		scanner:   scanner,
		publisher: publisher,
		config:    config,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentReminder),
		now:       time.Now,
		sent:      make(map[string]time.Time),
	}
}

// Start begins the scanning loop. Returns an error if already running.
func (p *BalanceReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("balance reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Balance reminder processor started",
		"interval", p.config.Interval,
		"window_days", p.config.WindowDays)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *BalanceReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Balance reminder processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Balance reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *BalanceReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *BalanceReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.scan(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *BalanceReminderProcessor) scan(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Balance scan failed", log.FieldError, err)
	}
}

// RunOnce performs a single scan and returns how many reminders were published.
func (p *BalanceReminderProcessor) RunOnce(ctx context.Context) (int, error) {
	items, err := p.scanner.ListOpenBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open balances: %w", err)
	}

	now := p.now()
	due := budget.OutstandingBalances(items, core.DateOf(now.UTC()), p.config.WindowDays)

	p.forgetSettled(due)

	sent := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if b.DueDate.IsEmpty() {
			continue
		}
		key := reminderKey(b)
		p.sentMu.Lock()
		last := p.sent[key]
		p.sentMu.Unlock()
		if !CadenceFor(b, p.config.UrgentDays).IsDue(last, now) {
			continue
		}

		if err := p.publisher.PublishBalanceDue(ctx, b); err != nil {
			p.metrics.Reminder(metrics.OutcomeError)
			p.logger.ErrorContext(ctx, "Failed to publish balance reminder",
				log.FieldError, err, log.FieldItemID, b.ItemID, log.FieldUserID, b.UserID)
			continue
		}
		p.sentMu.Lock()
		p.sent[key] = now
		p.sentMu.Unlock()
		p.metrics.Reminder(metrics.OutcomeSuccess)
		sent++
	}

	if sent > 0 {
		p.logger.InfoContext(ctx, "Published balance reminders", "count", sent, "open", len(due))
	}
	return sent, nil
}

func reminderKey(b budget.BalanceDue) string {
	return b.ItemID + "|" + b.DueDate.String()
}

// forgetSettled drops reminder history for balances that no longer appear in
// the scan: paid, deleted, rescheduled or moved out of the window.
func (p *BalanceReminderProcessor) forgetSettled(due []budget.BalanceDue) {
	live := make(map[string]struct{}, len(due))
	for _, b := range due {
		if !b.DueDate.IsEmpty() {
			live[reminderKey(b)] = struct{}{}
		}
	}
	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	for key := range p.sent {
		if _, ok := live[key]; !ok {
			delete(p.sent, key)
		}
	}
}
