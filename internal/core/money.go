// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user-entered amounts and for
// rendering amounts the way the dashboard displays them.
package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is appended to formatted amounts when none is configured.
const DefaultCurrency = "EGP"

// ParseAmount converts a decimal string to a strictly positive amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with thousands separators and two decimals,
// dropping the decimals when they are both zero: 1234.5 -> "1,234.50",
// 1500 -> "1,500".
func FormatAmount(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Mul(decimal.NewFromInt(100)).IntPart()
	s := sign + humanize.Comma(whole.IntPart())
	if cents == 0 {
		return s
	}
	return fmt.Sprintf("%s.%02d", s, cents)
}

// FormatMoney is FormatAmount followed by the currency label.
func FormatMoney(d decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return FormatAmount(d) + " " + currency
}

// Capitalize upper-cases the first letter, e.g. "income" -> "Income".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
