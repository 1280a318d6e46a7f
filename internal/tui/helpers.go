package tui

import (
	"strings"

	"github.com/shopspring/decimal"
)

// formatMoney formats an amount as "X,XXX.XX" with comma separators
func formatMoney(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)

	dotPos := strings.IndexByte(s, '.')
	intPart := s[:dotPos]
	decPart := s[dotPos:]

	result := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}

	if amount.IsNegative() {
		return "-" + string(result) + decPart
	}
	return string(result) + decPart
}

// formatRate renders a percentage rate, hiding zero
func formatRate(rate decimal.Decimal) string {
	if rate.IsZero() {
		return "-"
	}
	return rate.String() + "%"
}

// truncateStr truncates a string to the specified length with ellipsis
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
