package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CategoryVenue     Category = "venue"
	CategoryStyling   Category = "styling" // styling and photography
	CategoryRings     Category = "rings"
	CategoryHousehold Category = "household"
	CategoryHoneymoon Category = "honeymoon"
	CategoryOther     Category = "other"

	PayerShared Payer = "shared"
	PayerPartyA Payer = "party_a"
	PayerPartyB Payer = "party_b"

	StageDeposit  PaymentStage = "deposit"
	StageContract PaymentStage = "contract"
	StageFull     PaymentStage = "full"

	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodCheck    PaymentMethod = "check"
)

const dateLayout = "2006-01-02"

const maxTitleLength = 200

type (
	Category      string
	Payer         string
	PaymentStage  string
	PaymentMethod string

	// Region keys into the regional reference table.
	Region string

	Date struct {
		time.Time
	}

	// BudgetSettings is the single per-user plan record.
	BudgetSettings struct {
		UserID          string             `json:"user_id"`
		Region          Region             `json:"region"`
		GuestCount      int                `json:"guest_count"`
		TotalBudget     Money              `json:"total_budget"`
		CategoryBudgets map[Category]Money `json:"category_budgets"`
		UpdatedAt       time.Time          `json:"updated_at"`
	}

	// BudgetItem is one recorded expense.
	BudgetItem struct {
		ID             string        `json:"id"`
		UserID         string        `json:"user_id"`
		Category       Category      `json:"category"`
		Title          string        `json:"title"`
		Amount         Money         `json:"amount"`
		PaidBy         Payer         `json:"paid_by"`
		ItemDate       Date          `json:"item_date"`
		Memo           string        `json:"memo"`
		HasBalance     bool          `json:"has_balance"`
		BalanceAmount  Money         `json:"balance_amount"`
		BalanceDueDate Date          `json:"balance_due_date"`
		PaymentStage   PaymentStage  `json:"payment_stage"`
		PaymentMethod  PaymentMethod `json:"payment_method"`
		CreatedAt      time.Time     `json:"created_at"`
		UpdatedAt      time.Time     `json:"updated_at"`
	}

	CategoryInfo struct {
		Category   Category `json:"category"`
		Label      string   `json:"label"`
		Icon       string   `json:"icon"`
		SubItems   []string `json:"sub_items"`
		SavingTips []string `json:"saving_tips"`
	}

	// RegionalAverage holds typical spend figures for one region.
	RegionalAverage struct {
		Region     Region             `json:"region"`
		Label      string             `json:"label"`
		Total      Money              `json:"total"`
		ByCategory map[Category]Money `json:"by_category"`
	}
)

var (
	ErrEmptyTitle        = errors.New("empty title")
	ErrTitleTooLong      = fmt.Errorf("title too long (max %d characters)", maxTitleLength)
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidPayer      = errors.New("invalid payer")
	ErrInvalidStage      = errors.New("invalid payment stage")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrInvalidGuestCount = errors.New("invalid guest count")
)

// AllCategories returns the taxonomy in display order.
func AllCategories() []Category {
	return []Category{CategoryVenue, CategoryStyling, CategoryRings, CategoryHousehold, CategoryHoneymoon, CategoryOther}
}

// AllPayers returns every payer in display order.
func AllPayers() []Payer {
	return []Payer{PayerShared, PayerPartyA, PayerPartyB}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryVenue, CategoryStyling, CategoryRings, CategoryHousehold, CategoryHoneymoon, CategoryOther:
		return true
	}
	return false
}

func (p Payer) Valid() bool {
	switch p {
	case PayerShared, PayerPartyA, PayerPartyB:
		return true
	}
	return false
}

func (s PaymentStage) Valid() bool {
	switch s {
	case StageDeposit, StageContract, StageFull:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodCheck:
		return true
	}
	return false
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ParsePayer converts user input into a Payer.
func ParsePayer(s string) (Payer, error) {
	p := Payer(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPayer, s)
	}
	return p, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is unset
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// DaysUntil returns the whole days from d to other; negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Budget returns the allocation for c; unset categories are 0.
func (s BudgetSettings) Budget(c Category) Money {
	return s.CategoryBudgets[c]
}

// AllocatedTotal sums the per-category allocation.
func (s BudgetSettings) AllocatedTotal() Money {
	var total Money
	for _, c := range AllCategories() {
		total += s.CategoryBudgets[c]
	}
	return total
}

// AllocationDelta is AllocatedTotal minus TotalBudget. It is advisory only.
func (s BudgetSettings) AllocationDelta() Money {
	return s.AllocatedTotal() - s.TotalBudget
}

func (s BudgetSettings) Validate() error {
	if s.GuestCount < 0 {
		return ErrInvalidGuestCount
	}
	if s.TotalBudget < 0 {
		return fmt.Errorf("total budget: %w", ErrNegativeAmount)
	}
	for c, amount := range s.CategoryBudgets {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
		if amount < 0 {
			return fmt.Errorf("budget for %s: %w", c, ErrNegativeAmount)
		}
	}
	return nil
}

// Normalize clears the balance fields when the item has no outstanding balance.
func (it *BudgetItem) Normalize() {
	it.Title = strings.TrimSpace(it.Title)
	it.Memo = strings.TrimSpace(it.Memo)
	if !it.HasBalance {
		it.BalanceAmount = 0
		it.BalanceDueDate = Date{}
	}
}

func (it BudgetItem) Validate() error {
	if len(strings.TrimSpace(it.Title)) == 0 {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(it.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if err := it.Amount.Validate(); err != nil {
		return err
	}
	if !it.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, it.Category)
	}
	if !it.PaidBy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPayer, it.PaidBy)
	}
	if !it.PaymentStage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, it.PaymentStage)
	}
	if !it.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, it.PaymentMethod)
	}
	if it.HasBalance && it.BalanceAmount < 0 {
		return fmt.Errorf("balance: %w", ErrNegativeAmount)
	}
	return nil
}
