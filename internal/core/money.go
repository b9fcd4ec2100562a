// Package core defines the subscription data model shared by ingestion,
// storage, and the analysis engine.
//
// Amounts are decimal values rounded to two places. The analyzer divides
// averages by 12 or 3 and re-rounds at each step, so amounts are kept as
// float64 plus Round2 rather than integer cents: a cents representation
// would change the observable report values.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseAmount converts a decimal string to a positive amount with two-place
// rounding. It accepts both dot (12.34) and comma (12,34) decimal
// separators. Returns an error for invalid formats, signs, or zero amounts.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	v = Round2(v)
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// CurrencySymbols maps the supported currency codes to display symbols.
// Unknown codes fall back to the code itself followed by a space.
var CurrencySymbols = map[string]string{
	"USD": "$",
	"NGN": "₦",
	"GBP": "£",
	"EUR": "€",
	"JPY": "¥",
}

// Symbol returns the display symbol for a currency code.
func Symbol(currency string) string {
	if sym, ok := CurrencySymbols[currency]; ok {
		return sym
	}
	return currency + " "
}
