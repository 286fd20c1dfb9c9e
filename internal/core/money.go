// Package core provides amount parsing and formatting utilities.
//
// Amounts are decimals; the finance API converts currencies before
// returning totals, so nothing here knows about currencies except the
// exchange rate used by the savings breakdown.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("invalid exchange rate")
)

// displayLanguage drives thousands and decimal separators of FormatAmount.
var displayLanguage = language.Spanish

// ParseAmount converts a user supplied decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to two decimals. Negative and malformed values are rejected;
// zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, ok := parseUnsigned(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseExchangeRate parses a strictly positive exchange rate. The rate keeps
// every digit given.
func ParseExchangeRate(s string) (decimal.Decimal, error) {
	d, ok := parseUnsigned(s)
	if !ok || !d.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return d, nil
}

// parseUnsigned reads digits with at most one dot or comma separator.
func parseUnsigned(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return decimal.Zero, false
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, false
		}
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount for display with two decimals and locale
// separators. Digits come from the decimal itself, never from a float.
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	p := message.NewPrinter(displayLanguage)
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = p.Sprintf("%d", n)
	}
	out := whole + decimalSeparator(p) + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

func decimalSeparator(p *message.Printer) string {
	return strings.Trim(p.Sprintf("%.1f", 0.5), "05")
}
