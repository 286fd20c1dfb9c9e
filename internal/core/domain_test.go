package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMonthKeyTime(t *testing.T) {
	cases := []struct {
		key MonthKey
		ok  bool
	}{
		{"2024-01", true},
		{"1999-12", true},
		{"2024-1", false},
		{"2024-13", false},
		{"24-01", false},
		{"2024-01-15", false},
		{"", false},
		{"enero", false},
	}
	for i, tc := range cases {
		_, err := tc.key.Time()
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q) expected ok, got %v", i, tc.key, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d (%q) expected error", i, tc.key)
			}
			if !errors.Is(err, ErrInvalidMonthKey) {
				t.Fatalf("case %d expected ErrInvalidMonthKey, got %v", i, err)
			}
		}
	}
}

func TestMonthKeyAddMonths(t *testing.T) {
	cases := []struct {
		key  MonthKey
		n    int
		want MonthKey
	}{
		{"2024-03", -1, "2024-02"},
		{"2024-01", -1, "2023-12"},
		{"2023-12", 1, "2024-01"},
		{"2024-05", 0, "2024-05"},
	}
	for _, tc := range cases {
		got, err := tc.key.AddMonths(tc.n)
		if err != nil {
			t.Fatalf("AddMonths(%q, %d): %v", tc.key, tc.n, err)
		}
		if got != tc.want {
			t.Fatalf("AddMonths(%q, %d) = %q, want %q", tc.key, tc.n, got, tc.want)
		}
	}

	if _, err := MonthKey("bad").AddMonths(1); err == nil {
		t.Fatalf("expected error for invalid key")
	}
}

func TestMonthKeyMatches(t *testing.T) {
	now := time.Date(2024, 7, 31, 23, 0, 0, 0, time.UTC)
	if !MonthKey("2024-07").Matches(now) {
		t.Fatalf("expected 2024-07 to match")
	}
	if MonthKey("2023-07").Matches(now) {
		t.Fatalf("different year must not match")
	}
	if MonthKey("garbage").Matches(now) {
		t.Fatalf("invalid key must not match")
	}
	if MonthKeyOf(now) != "2024-07" {
		t.Fatalf("MonthKeyOf = %q", MonthKeyOf(now))
	}
	if NewMonthKey(2024, 2) != "2024-02" {
		t.Fatalf("NewMonthKey = %q", NewMonthKey(2024, 2))
	}
}

func TestBucketUnmarshalSourceKeys(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"income key", `{"date":"2024-01","income":[{"name":"Sueldo","price":1000}],"total":1000}`},
		{"fixedCost key", `{"date":"2024-01","fixedCost":[{"name":"Sueldo","price":"1000"}],"total":"1000"}`},
		{"items key", `{"date":"2024-01","items":[{"name":"Sueldo","price":1000}],"total":1000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b Bucket
			if err := json.Unmarshal([]byte(tc.body), &b); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if b.Date != "2024-01" || len(b.Items) != 1 || b.Items[0].Name != "Sueldo" {
				t.Fatalf("unexpected bucket: %+v", b)
			}
			if !b.Total.Equal(decimal.NewFromInt(1000)) {
				t.Fatalf("total = %s", b.Total)
			}
		})
	}
}

func TestBucketSideNeverNil(t *testing.T) {
	s := Bucket{Date: "2024-01"}.Side()
	if s.Items == nil {
		t.Fatalf("items must not be nil")
	}
	if !EmptySide().Total.IsZero() || EmptySide().Items == nil {
		t.Fatalf("unexpected empty side: %+v", EmptySide())
	}
}

func TestLineItemValidateAndClosable(t *testing.T) {
	good := LineItem{Name: "Alquiler", Price: decimal.NewFromInt(10)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (LineItem{Name: " ", Price: decimal.NewFromInt(1)}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (LineItem{Name: "x", Price: decimal.NewFromInt(-1)}).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if (LineItem{Name: CardSpendItem}).Closable() {
		t.Fatalf("card spend row must not be closable")
	}
	if !good.Closable() {
		t.Fatalf("regular row must be closable")
	}
}

func TestMergedMonthBalance(t *testing.T) {
	m := MergedMonth{
		Income:    Side{Total: decimal.NewFromInt(1000)},
		FixedCost: Side{Total: decimal.NewFromInt(400)},
	}
	if !m.Balance().Equal(decimal.NewFromInt(600)) {
		t.Fatalf("balance = %s", m.Balance())
	}
}

func TestSavingItemRules(t *testing.T) {
	s := SavingItem{Invested: decimal.NewFromInt(100)}
	if !s.Value().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("value without obtained = %s", s.Value())
	}
	s.Obtained = decimal.NewFromInt(120)
	if !s.Value().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("value with obtained = %s", s.Value())
	}
	if s.Currency() != BaseCurrency {
		t.Fatalf("default currency = %s", s.Currency())
	}
	if (SavingItem{Ccy: "usd"}).Currency() != "USD" {
		t.Fatalf("currency not normalised")
	}
	if !(SavingItem{Type: SavingFixed}).Deletable() || (SavingItem{Type: SavingFixed}).Finalizable() {
		t.Fatalf("fijo must be deletable only")
	}
	if !(SavingItem{Type: SavingFlexible}).Finalizable() || (SavingItem{Type: SavingFlexible}).Deletable() {
		t.Fatalf("flex must be finalizable only")
	}
}
