package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/reference"
	"wedplan/internal/report"
	"wedplan/internal/sheets"
)

var (
	// ErrRejected wraps the validation error of input that was refused.
	ErrRejected = errors.New("input rejected")
	// ErrItemNotFound is returned when an item does not exist for the user.
	ErrItemNotFound = errors.New("item not found")
	// ErrMissingUser is returned when no ledger owner is given.
	ErrMissingUser = errors.New("missing user id")
)

// ChangePublisher announces ledger mutations to downstream consumers.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, userID, operation, itemID string) error
}

// SettingsInput is the editable part of BudgetSettings.
type SettingsInput struct {
	Region          core.Region                  `json:"region"`
	GuestCount      int                          `json:"guest_count"`
	TotalBudget     core.Money                   `json:"total_budget"`
	CategoryBudgets map[core.Category]core.Money `json:"category_budgets"`
}

// ItemInput is the editable part of BudgetItem. Blank enum fields and a
// blank date take their defaults.
type ItemInput struct {
	Category       core.Category      `json:"category"`
	Title          string             `json:"title"`
	Amount         core.Money         `json:"amount"`
	PaidBy         core.Payer         `json:"paid_by"`
	ItemDate       core.Date          `json:"item_date"`
	Memo           string             `json:"memo"`
	HasBalance     bool               `json:"has_balance"`
	BalanceAmount  core.Money         `json:"balance_amount"`
	BalanceDueDate core.Date          `json:"balance_due_date"`
	PaymentStage   core.PaymentStage  `json:"payment_stage"`
	PaymentMethod  core.PaymentMethod `json:"payment_method"`
}

// Snapshot is the state the derivation engines run on.
type Snapshot struct {
	Settings core.BudgetSettings
	Items    []core.BudgetItem
}

// LedgerService owns the per-user ledger: settings, items and the derived views.
type LedgerService struct {
	store     sheets.LedgerStore
	ref       *reference.Data
	publisher ChangePublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
	newID     func() string
}

type Option func(*LedgerService)

// WithPublisher sets the change publisher; without one mutations are not announced.
func WithPublisher(p ChangePublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithClock overrides time.Now; "today" is taken from it in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *LedgerService) { s.newID = gen }
}

func NewLedgerService(store sheets.LedgerStore, ref *reference.Data, opts ...Option) *LedgerService {
	s := &LedgerService{
		store: store,
		ref:   ref,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ref == nil {
		s.ref = reference.Default()
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Reference returns the taxonomy and regional data the service computes with.
func (s *LedgerService) Reference() *reference.Data {
	return s.ref
}

// Today is the current calendar day in UTC.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now().UTC())
}

// Settings returns the stored settings or an empty plan for a new user.
func (s *LedgerService) Settings(ctx context.Context, userID string) (core.BudgetSettings, error) {
	if userID == "" {
		return core.BudgetSettings{}, ErrMissingUser
	}
	st, err := s.store.FetchSettings(ctx, userID)
	if errors.Is(err, sheets.ErrNotFound) {
		return core.BudgetSettings{UserID: userID, CategoryBudgets: map[core.Category]core.Money{}}, nil
	}
	if err != nil {
		return core.BudgetSettings{}, fmt.Errorf("fetch settings: %w", err)
	}
	if st.CategoryBudgets == nil {
		st.CategoryBudgets = map[core.Category]core.Money{}
	}
	return st, nil
}

// SaveSettings replaces the user's settings. Only negative figures and
// unknown categories are rejected; allocations that do not add up to the
// total and regions without reference data are accepted with a warning.
func (s *LedgerService) SaveSettings(ctx context.Context, userID string, in SettingsInput) (core.BudgetSettings, error) {
	if userID == "" {
		return core.BudgetSettings{}, ErrMissingUser
	}
	st := core.BudgetSettings{
		UserID:          userID,
		Region:          core.Region(strings.ToLower(strings.TrimSpace(string(in.Region)))),
		GuestCount:      in.GuestCount,
		TotalBudget:     in.TotalBudget,
		CategoryBudgets: make(map[core.Category]core.Money, len(in.CategoryBudgets)),
		UpdatedAt:       s.now().UTC(),
	}
	for c, v := range in.CategoryBudgets {
		st.CategoryBudgets[c] = v
	}
	if err := st.Validate(); err != nil {
		return s.rejectSettings(ctx, userID, err)
	}

	if delta := st.AllocationDelta(); delta != 0 {
		s.logger.WarnContext(ctx, "Category allocation does not match total budget",
			log.FieldUserID, userID, "allocated", st.AllocatedTotal(), "total", st.TotalBudget, "delta", delta)
	}
	if st.Region != "" {
		if _, ok := s.ref.Regional(st.Region); !ok {
			s.logger.WarnContext(ctx, "No regional reference data", log.FieldUserID, userID, log.FieldRegion, st.Region)
		}
	}

	if err := s.store.UpsertSettings(ctx, st); err != nil {
		s.fail(ctx, log.OpSaveSettings, userID, err)
		return core.BudgetSettings{}, fmt.Errorf("save settings: %w", err)
	}
	s.succeed(ctx, log.OpSaveSettings, userID, "", log.NewFields().WithField(log.FieldRegion, string(st.Region)))
	return st, nil
}

func (s *LedgerService) rejectSettings(ctx context.Context, userID string, err error) (core.BudgetSettings, error) {
	s.metrics.LedgerMutation(log.OpSaveSettings, metrics.OutcomeRejected)
	s.events.LogRejected(ctx, log.OpSaveSettings, userID, err)
	return core.BudgetSettings{}, fmt.Errorf("%w: %w", ErrRejected, err)
}

// Items returns the user's items ordered by item date, then creation time.
func (s *LedgerService) Items(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	items, err := s.store.FetchItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	return items, nil
}

// AddItem records a new expense. Invalid input is rejected with ErrRejected
// and nothing is written.
func (s *LedgerService) AddItem(ctx context.Context, userID string, in ItemInput) (core.BudgetItem, error) {
	if userID == "" {
		return core.BudgetItem{}, ErrMissingUser
	}
	now := s.now().UTC()
	it := s.fromInput(in, s.Today())
	it.UserID = userID
	if err := it.Validate(); err != nil {
		return s.rejectItem(ctx, log.OpAddItem, userID, err)
	}
	it.ID = s.newID()
	it.CreatedAt = now
	it.UpdatedAt = now

	if err := s.store.InsertItem(ctx, it); err != nil {
		s.fail(ctx, log.OpAddItem, userID, err)
		return core.BudgetItem{}, fmt.Errorf("insert item: %w", err)
	}
	s.succeed(ctx, log.OpAddItem, userID, it.ID, itemFields(it))
	return it, nil
}

// UpdateItem replaces every mutable field of an existing item. The id, owner
// and creation time are kept. A blank date keeps the current date.
func (s *LedgerService) UpdateItem(ctx context.Context, userID, id string, in ItemInput) (core.BudgetItem, error) {
	if userID == "" {
		return core.BudgetItem{}, ErrMissingUser
	}
	existing, err := s.store.GetItem(ctx, userID, id)
	if errors.Is(err, sheets.ErrNotFound) {
		return core.BudgetItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("get item: %w", err)
	}

	it := s.fromInput(in, existing.ItemDate)
	it.ID = existing.ID
	it.UserID = existing.UserID
	it.CreatedAt = existing.CreatedAt
	it.UpdatedAt = s.now().UTC()
	if err := it.Validate(); err != nil {
		return s.rejectItem(ctx, log.OpUpdateItem, userID, err)
	}

	if err := s.store.UpdateItem(ctx, it); err != nil {
		if errors.Is(err, sheets.ErrNotFound) {
			return core.BudgetItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		s.fail(ctx, log.OpUpdateItem, userID, err)
		return core.BudgetItem{}, fmt.Errorf("update item: %w", err)
	}
	s.succeed(ctx, log.OpUpdateItem, userID, it.ID, itemFields(it))
	return it, nil
}

// DeleteItem removes an item. Deleting an unknown id succeeds and changes nothing.
func (s *LedgerService) DeleteItem(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if _, err := s.store.GetItem(ctx, userID, id); errors.Is(err, sheets.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if err := s.store.DeleteItem(ctx, userID, id); err != nil {
		s.fail(ctx, log.OpDeleteItem, userID, err)
		return fmt.Errorf("delete item: %w", err)
	}
	s.succeed(ctx, log.OpDeleteItem, userID, id, nil)
	return nil
}

// Snapshot reads the settings and items the engines derive from.
func (s *LedgerService) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	items, err := s.Items(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Settings: st, Items: items}, nil
}

func (s *LedgerService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return s.summarize(snap), nil
}

// Split simulates dividing the saved category budgets between the parties.
func (s *LedgerService) Split(ctx context.Context, userID string, modes map[core.Category]budget.SplitMode, ratio int) (budget.SplitResult, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return budget.SplitResult{}, err
	}
	return budget.SimulateSplit(st.CategoryBudgets, modes, ratio), nil
}

// Balances lists the user's outstanding balances; see budget.OutstandingBalances for window.
func (s *LedgerService) Balances(ctx context.Context, userID string, window int) ([]budget.BalanceDue, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	return budget.OutstandingBalances(items, s.Today(), window), nil
}

func (s *LedgerService) Report(ctx context.Context, userID string) (report.Report, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(userID, s.summarize(snap), snap.Items, s.ref, s.now()), nil
}

func (s *LedgerService) summarize(snap Snapshot) core.Summary {
	avg, _ := s.ref.Regional(snap.Settings.Region)
	return budget.Summarize(snap.Settings, snap.Items, avg)
}

func (s *LedgerService) fromInput(in ItemInput, defaultDate core.Date) core.BudgetItem {
	it := core.BudgetItem{
		Category:       in.Category,
		Title:          in.Title,
		Amount:         in.Amount,
		PaidBy:         in.PaidBy,
		ItemDate:       in.ItemDate,
		Memo:           in.Memo,
		HasBalance:     in.HasBalance,
		BalanceAmount:  in.BalanceAmount,
		BalanceDueDate: in.BalanceDueDate,
		PaymentStage:   in.PaymentStage,
		PaymentMethod:  in.PaymentMethod,
	}
	if it.Category == "" {
		it.Category = core.CategoryVenue
	}
	if it.PaidBy == "" {
		it.PaidBy = core.PayerShared
	}
	if it.PaymentStage == "" {
		it.PaymentStage = core.StageFull
	}
	if it.PaymentMethod == "" {
		it.PaymentMethod = core.MethodCard
	}
	if it.ItemDate.IsEmpty() {
		it.ItemDate = defaultDate
	}
	it.Normalize()
	return it
}

func (s *LedgerService) rejectItem(ctx context.Context, op, userID string, err error) (core.BudgetItem, error) {
	s.metrics.LedgerMutation(op, metrics.OutcomeRejected)
	s.events.LogRejected(ctx, op, userID, err)
	return core.BudgetItem{}, fmt.Errorf("%w: %w", ErrRejected, err)
}

func (s *LedgerService) fail(ctx context.Context, op, userID string, err error) {
	s.metrics.LedgerMutation(op, metrics.OutcomeError)
	s.events.LogError(ctx, "Ledger storage failed", err, log.ErrorTypeDatabase, op, log.NewFields().WithUser(userID))
}

// succeed records and announces a mutation. Publishing is best effort.
func (s *LedgerService) succeed(ctx context.Context, op, userID, itemID string, fields log.LogFields) {
	s.metrics.LedgerMutation(op, metrics.OutcomeSuccess)
	s.events.LogMutation(ctx, op, userID, fields)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, userID, op, itemID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldError, err, log.FieldOperation, op, log.FieldUserID, userID)
	}
}

func itemFields(it core.BudgetItem) log.LogFields {
	return log.NewFields().WithItem(it.ID, string(it.Category), it.Amount.Int64(), string(it.PaidBy))
}
