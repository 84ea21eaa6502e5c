package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "0"},
		{"1500", "1,500"},
		{"1234567.5", "1,234,567.50"},
		{"3300.05", "3,300.05"},
		{"12.004", "12"},
		{"-2500.25", "-2,500.25"},
	}
	for _, tc := range cases {
		if got := FormatAmount(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Errorf("FormatAmount(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
	if got := FormatMoney(decimal.NewFromInt(5000), ""); got != "5,000 EGP" {
		t.Errorf("FormatMoney default currency = %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	if Capitalize("expense") != "Expense" || Capitalize("") != "" {
		t.Fatalf("unexpected capitalize result")
	}
}
