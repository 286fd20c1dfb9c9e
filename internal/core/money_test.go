package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", "0", true},
		{"1", "1", true},
		{"1.2", "1.2", true},
		{"1,20", "1.2", true},
		{"12.345", "12.35", true},
		{"12.344", "12.34", true},
		{".5", "0.5", true},
		{"7.", "7", true},
		{"abc", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if c.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", c.in, err)
		}
		if !c.ok {
			if err == nil {
				t.Fatalf("%q: expected error", c.in)
			}
			continue
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%q: got %s want %s", c.in, got, c.want)
		}
	}
}

func TestParseExchangeRate(t *testing.T) {
	if _, err := ParseExchangeRate("0"); err == nil {
		t.Fatalf("zero rate must be rejected")
	}
	r, err := ParseExchangeRate("1050,5")
	if err != nil || !r.Equal(decimal.RequireFromString("1050.5")) {
		t.Fatalf("rate = %s err=%v", r, err)
	}
}

func TestParseExchangeRateKeepsPrecision(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.0125", "0.0125"},
		{"1234.5678", "1234.5678"},
		{"0,004", "0.004"},
		{"1050", "1050"},
	}
	for _, c := range cases {
		got, err := ParseExchangeRate(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", c.in, err)
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%q: got %s want %s", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", ".", "-2", "0,000", "1.2.3", "abc"} {
		if _, err := ParseExchangeRate(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestFormatAmountIsExact(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"98765432109876.43", "98.765.432.109.876,43"},
		{"1234567.5", "1.234.567,50"},
		{"-1234567.555", "-1.234.567,56"},
		{"0", "0,00"},
	}
	for _, c := range cases {
		if got := FormatAmount(decimal.RequireFromString(c.in)); got != c.want {
			t.Fatalf("%s: got %q want %q", c.in, got, c.want)
		}
	}
}

func TestFormatAmountDecimals(t *testing.T) {
	got := FormatAmount(decimal.RequireFromString("1234567.5"))
	if !strings.HasSuffix(got, ",50") {
		t.Fatalf("expected comma decimals, got %q", got)
	}
	if !strings.HasPrefix(got, "1") || !strings.Contains(got, "567") {
		t.Fatalf("unexpected digits in %q", got)
	}
}
