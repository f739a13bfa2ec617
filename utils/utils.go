package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the scale of every stored amount (numeric(12,2)).
const AmountPlaces = 2

// FormatAmount renders an amount as fixed-point text, e.g. "100.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// ParseAmount accepts both "100.50" and "100,50".
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", -1))
}
