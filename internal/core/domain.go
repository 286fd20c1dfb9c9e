package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// monthKeyLayout is the canonical year-month layout.
const monthKeyLayout = "2006-01"

const (
	TypeFixed    = "fixed"
	TypeFlexible = "flexible"

	// Saving types as sent by the finance API.
	SavingFixed    = "fijo"
	SavingFlexible = "flex"

	// CardSpendItem is the aggregated credit-card row of a fixed-cost month.
	CardSpendItem = "Tarjeta"

	// BaseCurrency amounts are never converted with the exchange rate.
	BaseCurrency = "ARS"
)

type (
	// MonthKey identifies a calendar month as "YYYY-MM".
	MonthKey string

	// LineItem is a named monetary entry of a monthly bucket.
	LineItem struct {
		ID          int64           `json:"id,omitempty"`
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		Installment string          `json:"installment,omitempty"`
		Liquid      bool            `json:"liquid,omitempty"`
		Type        string          `json:"type,omitempty"`
		DateFrom    MonthKey        `json:"date_from,omitempty"`
		DateTo      MonthKey        `json:"date_to,omitempty"`
	}

	// Bucket is one source's record for a month. Total is carried as received.
	Bucket struct {
		Date  MonthKey        `json:"date"`
		Items []LineItem      `json:"items"`
		Total decimal.Decimal `json:"total"`
	}

	// Side is one half of a merged month.
	Side struct {
		Items []LineItem      `json:"items"`
		Total decimal.Decimal `json:"total"`
	}

	// MergedMonth pairs income and fixed costs for a single month.
	MergedMonth struct {
		Date      MonthKey `json:"date"`
		Income    Side     `json:"income"`
		FixedCost Side     `json:"fixedCost"`
	}
)

var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrEmptyName       = errors.New("empty item name")
	ErrNegativeAmount  = errors.New("negative amount")
)

// MonthKeyOf returns the key of the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthKeyLayout))
}

// NewMonthKey builds a key from a year and a 1-based month.
func NewMonthKey(year, month int) MonthKey {
	return MonthKeyOf(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
}

// ParseMonthKey validates s and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	k := MonthKey(strings.TrimSpace(s))
	if _, err := k.Time(); err != nil {
		return "", err
	}
	return k, nil
}

// Time returns the first instant of the month in UTC.
func (k MonthKey) Time() (time.Time, error) {
	t, err := time.Parse(monthKeyLayout, string(k))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidMonthKey, string(k), err)
	}
	return t, nil
}

// Validate reports whether the key parses as a year-month.
func (k MonthKey) Validate() error {
	_, err := k.Time()
	return err
}

// AddMonths shifts the key by n calendar months.
func (k MonthKey) AddMonths(n int) (MonthKey, error) {
	t, err := k.Time()
	if err != nil {
		return "", err
	}
	return MonthKeyOf(t.AddDate(0, n, 0)), nil
}

// Matches reports whether the key is the month of t. Unparseable keys never match.
func (k MonthKey) Matches(t time.Time) bool {
	kt, err := k.Time()
	if err != nil {
		return false
	}
	return kt.Year() == t.Year() && kt.Month() == t.Month()
}

func (k MonthKey) String() string {
	return string(k)
}

// IsEmpty reports whether the bucket carries no items.
func (b Bucket) IsEmpty() bool {
	return len(b.Items) == 0
}

// UnmarshalJSON accepts the item list under "items" or under the source
// specific keys "income" and "fixedCost" used by the finance API.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date      MonthKey        `json:"date"`
		Items     []LineItem      `json:"items"`
		Income    []LineItem      `json:"income"`
		FixedCost []LineItem      `json:"fixedCost"`
		Total     decimal.Decimal `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Date = raw.Date
	b.Total = raw.Total
	switch {
	case raw.Items != nil:
		b.Items = raw.Items
	case raw.Income != nil:
		b.Items = raw.Income
	default:
		b.Items = raw.FixedCost
	}
	return nil
}

// Side returns the bucket as a merged-month side, never with nil items.
func (b Bucket) Side() Side {
	items := b.Items
	if items == nil {
		items = []LineItem{}
	}
	return Side{Items: items, Total: b.Total}
}

// EmptySide is the placeholder for a month missing from one source.
func EmptySide() Side {
	return Side{Items: []LineItem{}, Total: decimal.Zero}
}

// Balance is income minus fixed costs for the month.
func (m MergedMonth) Balance() decimal.Decimal {
	return m.Income.Total.Sub(m.FixedCost.Total)
}

func (i LineItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Price.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Closable reports whether the item may be closed out by the user.
func (i LineItem) Closable() bool {
	return i.Name != CardSpendItem
}

// User is the owner of the API token.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
