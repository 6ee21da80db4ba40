// Package core provides money parsing and handling utilities.
//
// This file contains the helpers used to read amounts out of spreadsheet
// cells and to compare them at currency-unit granularity.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute epsilon used to decide whether two amounts match.
// Amounts are assumed to be a single currency with 2-decimal precision.
var Tolerance = decimal.New(1, -2)

// ParseAmount converts a cell value to a signed decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, a leading
// sign, an optional euro symbol and thousands separators when both separators
// are present. Returns ErrInvalidAmount for anything else.
//
// Examples:
//
//	ParseAmount("-800")       -> -800, nil
//	ParseAmount("12,34")      -> 12.34, nil
//	ParseAmount("1.234,56")   -> 1234.56, nil
//	ParseAmount("€ 1,234.56") -> 1234.56, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// The right-most separator is the decimal one.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmountOrZero is the lenient variant used on pivot rows: a cell that is
// not a number counts as 0. The second result reports whether parsing failed
// on a non-empty cell.
func ParseAmountOrZero(s string) (decimal.Decimal, bool) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, false
	}
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, true
	}
	return d, false
}

// WithinTolerance reports whether a and b differ by strictly less than Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatEuros renders an amount for terminal output, e.g. "€-1,234.50".
func FormatEuros(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "€" + sign + b.String() + "." + frac
}
