package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SavingItem is an investment position as of a given month.
type SavingItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Invested decimal.Decimal `json:"invested"`
	Obtained decimal.Decimal `json:"obtained"`
	TNA      decimal.Decimal `json:"tna"`
	Liquid   bool            `json:"liquid"`
	Type     string          `json:"type"`
	Ccy      string          `json:"ccy"`
	DateTo   MonthKey        `json:"date_to,omitempty"`
}

// SavingMonth is the snapshot of all positions for a month.
type SavingMonth struct {
	Date   MonthKey     `json:"date"`
	Saving []SavingItem `json:"saving"`
}

// CurrencyShare is one slice of the current-month currency breakdown.
type CurrencyShare struct {
	Ccy     string          `json:"ccy"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// SavingPoint is one point of the savings evolution series.
type SavingPoint struct {
	Date     MonthKey        `json:"date"`
	Invested decimal.Decimal `json:"invested"`
	Obtained decimal.Decimal `json:"obtained"`
}

// MonthKey lets saving months be paged and focused like merged months.
func (m SavingMonth) MonthKey() MonthKey { return m.Date }

// MonthKey returns the month of the merged entry.
func (m MergedMonth) MonthKey() MonthKey { return m.Date }

// Value is the obtained amount when one was recorded, the invested amount otherwise.
func (s SavingItem) Value() decimal.Decimal {
	if !s.Obtained.IsZero() {
		return s.Obtained
	}
	return s.Invested
}

// Deletable reports whether the position may be removed entirely.
func (s SavingItem) Deletable() bool {
	return s.Type == SavingFixed
}

// Finalizable reports whether the position may be closed from a month on.
func (s SavingItem) Finalizable() bool {
	return s.Type == SavingFlexible
}

// Currency returns the upper-cased currency code, defaulting to BaseCurrency.
func (s SavingItem) Currency() string {
	c := strings.ToUpper(strings.TrimSpace(s.Ccy))
	if c == "" {
		return BaseCurrency
	}
	return c
}
