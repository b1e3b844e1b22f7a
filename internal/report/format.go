package report

import (
	"fmt"
	"strconv"
	"strings"

	"wedplan/internal/core"
)

const currencySymbol = "₩"

// FormatAmount renders m with the currency symbol and comma grouping.
// e.g., 1234567 -> "₩1,234,567", -500 -> "-₩500"
func FormatAmount(m core.Money) string {
	if m < 0 {
		return "-" + currencySymbol + groupDigits(strconv.FormatInt(-m.Int64(), 10))
	}
	return currencySymbol + groupDigits(strconv.FormatInt(m.Int64(), 10))
}

// FormatDelta is FormatAmount with an explicit sign for positive values.
func FormatDelta(m core.Money) string {
	if m > 0 {
		return "+" + FormatAmount(m)
	}
	return FormatAmount(m)
}

// FormatPercent formats a 0-100 value with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
