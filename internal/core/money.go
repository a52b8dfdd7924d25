// Package core provides amount parsing and formatting utilities.
//
// Payout amounts are Colombian pesos without cents. Quantities (cases, hours)
// may be fractional for overtime.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseQuantity converts a decimal string to a non-negative quantity.
//
// It accepts both dot (1.5) and comma (1,5) decimal separators. Empty input
// is treated as zero.
//
// Examples:
//
//	ParseQuantity("3")   -> 3, nil
//	ParseQuantity("1,5") -> 1.5, nil
//	ParseQuantity("-2")  -> 0, ErrInvalidQuantity
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return v, nil
}

// ParseAmountOrZero parses a configured price. Malformed values become 0,
// so a bad rate never blocks a payout view.
func ParseAmountOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(strings.TrimSuffix(s, "COP"))
	if s == "" {
		return 0
	}
	// "10.000" and "10,000" are thousands-grouped pesos, not decimals.
	if strings.Count(s, ".")+strings.Count(s, ",") >= 1 && groupedThousands(s) {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func groupedThousands(s string) bool {
	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) < 2 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FormatCOP renders an amount rounded to whole pesos with "." thousands
// grouping, e.g. FormatCOP(74000) == "$ 74.000 COP".
func FormatCOP(amount float64) string {
	rounded := int64(math.Round(amount))
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "$ " + groupDigits(strconv.FormatInt(rounded, 10)) + " COP"
}

// FormatQuantity drops the fractional part when it is zero.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
