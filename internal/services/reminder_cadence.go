package services

import (
	"time"

	"wedplan/internal/budget"
)

// ReminderCadence decides whether a balance should be reminded again given
// when it was last reminded.
type ReminderCadence interface {
	IsDue(lastSent, now time.Time) bool
}

// DailyCadence reminds once per calendar day.
type DailyCadence struct{}

func (DailyCadence) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return lastSent.UTC().Format("2006-01-02") != now.UTC().Format("2006-01-02")
}

// WeeklyCadence reminds when 7 or more days have passed.
type WeeklyCadence struct{}

func (WeeklyCadence) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return now.Sub(lastSent).Hours()/24 >= 7
}

// CadenceFor picks the cadence for a balance: daily when overdue or due within
// urgentDays, weekly otherwise.
func CadenceFor(b budget.BalanceDue, urgentDays int) ReminderCadence {
	if b.Overdue || b.DaysLeft <= urgentDays {
		return DailyCadence{}
	}
	return WeeklyCadence{}
}
