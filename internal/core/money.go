// Package core provides money parsing and handling utilities.
//
// Amounts are whole units of the base currency; there is no minor unit.
package core

import (
	"strconv"
	"strings"
)

// Money is an amount in whole base-currency units.
type Money int64

// Validate reports whether m is usable as an expense amount (strictly positive).
func (m Money) Validate() error {
	if m <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Int64 returns the raw unit count.
func (m Money) Int64() int64 {
	return int64(m)
}

// ParseAmount converts user text to Money.
//
// A digit group separator (comma, dot, underscore or space) may split the
// digits into groups of three after a leading group of one to three digits,
// and the same separator must be used throughout. Fractions, signs and empty
// input are rejected. Zero is accepted so settings can clear an allocation;
// item validation rejects it separately.
//
// Examples:
//
//	ParseAmount("1,500,000") -> 1500000, nil
//	ParseAmount("1_500_000") -> 1500000, nil
//	ParseAmount("12.5")      -> 0, ErrInvalidAmount
//	ParseAmount("-5")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	sep := rune(0)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == ',' || r == '.' || r == '_' || r == ' ':
			if sep != 0 && r != sep {
				return 0, ErrInvalidAmount
			}
			sep = r
		default:
			return 0, ErrInvalidAmount
		}
	}

	digits := s
	if sep != 0 {
		groups := strings.Split(s, string(sep))
		if len(groups[0]) < 1 || len(groups[0]) > 3 {
			return 0, ErrInvalidAmount
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidAmount
			}
		}
		digits = strings.Join(groups, "")
	}

	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Money(v), nil
}
