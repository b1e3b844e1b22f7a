package memory

import (
	"context"
	"sort"
	"sync"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/report"
	ports "wedplan/internal/sheets"
)

var (
	_ ports.LedgerStore    = (*Store)(nil)
	_ ports.BalanceScanner = (*Store)(nil)
	_ ports.ReportWriter   = (*Store)(nil)
	_ ports.ReminderWriter = (*Store)(nil)
)

// Store keeps every ledger in process memory. It also records exported
// reports and reminders so local runs and tests can observe them.
type Store struct {
	mu        sync.Mutex
	settings  map[string]core.BudgetSettings
	items     map[string][]core.BudgetItem
	reports   map[string]report.Report
	reminders []budget.BalanceDue
}

func New() *Store {
	return &Store{
		settings: make(map[string]core.BudgetSettings),
		items:    make(map[string][]core.BudgetItem),
		reports:  make(map[string]report.Report),
	}
}

func (s *Store) FetchSettings(_ context.Context, userID string) (core.BudgetSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		return core.BudgetSettings{}, ports.ErrNotFound
	}
	return cloneSettings(st), nil
}

func (s *Store) UpsertSettings(_ context.Context, st core.BudgetSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.UserID] = cloneSettings(st)
	return nil
}

func (s *Store) FetchItems(_ context.Context, userID string) ([]core.BudgetItem, error) {
	s.mu.Lock()
	out := append([]core.BudgetItem(nil), s.items[userID]...)
	s.mu.Unlock()
	sortItems(out)
	return out, nil
}

func (s *Store) GetItem(_ context.Context, userID, id string) (core.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items[userID] {
		if it.ID == id {
			return it, nil
		}
	}
	return core.BudgetItem{}, ports.ErrNotFound
}

func (s *Store) InsertItem(_ context.Context, it core.BudgetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.UserID] = append(s.items[it.UserID], it)
	return nil
}

func (s *Store) UpdateItem(_ context.Context, it core.BudgetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.items[it.UserID]
	for i := range list {
		if list[i].ID == it.ID {
			list[i] = it
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *Store) DeleteItem(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.items[userID]
	for i := range list {
		if list[i].ID == id {
			s.items[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListOpenBalances returns items with a positive balance across all users.
func (s *Store) ListOpenBalances(_ context.Context) ([]core.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetItem
	for _, list := range s.items {
		for _, it := range list {
			if it.HasBalance && it.BalanceAmount > 0 {
				out = append(out, it)
			}
		}
	}
	sortItems(out)
	return out, nil
}

// ListUsers returns every user with settings or items, sorted.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.settings)+len(s.items))
	for u := range s.settings {
		seen[u] = struct{}{}
	}
	for u, list := range s.items {
		if len(list) > 0 {
			seen[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// WriteReport keeps the latest report per user.
func (s *Store) WriteReport(_ context.Context, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.UserID] = r
	return nil
}

func (s *Store) AppendReminder(_ context.Context, b budget.BalanceDue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, b)
	return nil
}

// Report returns the last report written for userID.
func (s *Store) Report(userID string) (report.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[userID]
	return r, ok
}

func (s *Store) Reminders() []budget.BalanceDue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]budget.BalanceDue(nil), s.reminders...)
}

func cloneSettings(st core.BudgetSettings) core.BudgetSettings {
	budgets := make(map[core.Category]core.Money, len(st.CategoryBudgets))
	for c, v := range st.CategoryBudgets {
		budgets[c] = v
	}
	st.CategoryBudgets = budgets
	return st
}

func sortItems(items []core.BudgetItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ItemDate.Equal(b.ItemDate.Time) {
			return a.ItemDate.Before(b.ItemDate.Time)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
