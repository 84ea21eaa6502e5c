package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2023-10-01", NewDate(2023, time.October, 1), true},
		{" 2025-12-31 ", NewDate(2025, time.December, 31), true},
		{"2023-10-20T00:00:00.000Z", NewDate(2023, time.October, 20), true},
		{"", Date{}, false},
		{"20/10/2023", Date{}, false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && (err != nil || !got.Equal(tc.want.Time)) {
			t.Fatalf("case %d: expected %v, got %v (err=%v)", i, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestMonthKeyOrderingAndLabel(t *testing.T) {
	a := MonthKey{Year: 2023, Month: time.December}
	b := MonthKey{Year: 2024, Month: time.January}
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %v before %v", a, b)
	}
	if a.String() != "2023-12" {
		t.Fatalf("unexpected key %q", a.String())
	}
	if a.Label() != "Dec 2023" {
		t.Fatalf("unexpected label %q", a.Label())
	}
}

func TestDraftValidate(t *testing.T) {
	good := Draft{
		Title:    "Rent",
		Amount:   decimal.NewFromInt(1500),
		Type:     Expense,
		Category: Rent,
		Date:     NewDate(2023, time.October, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		edit func(d *Draft)
		want error
	}{
		{"blank title", func(d *Draft) { d.Title = "   " }, ErrEmptyTitle},
		{"zero amount", func(d *Draft) { d.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{"bad type", func(d *Draft) { d.Type = "transfer" }, ErrInvalidType},
		{"expense without category", func(d *Draft) { d.Category = "" }, ErrMissingCategory},
		{"unknown category", func(d *Draft) { d.Category = "Travel" }, ErrInvalidCategory},
		{"missing date", func(d *Draft) { d.Date = Date{} }, ErrEmptyDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.edit(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewTransactionDropsCategoryOnIncome(t *testing.T) {
	tx, err := NewTransaction("id-1", Draft{
		Title:    "  Salary ",
		Amount:   decimal.NewFromInt(5000),
		Type:     Income,
		Category: Food,
		Date:     NewDate(2023, time.October, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Category != "" {
		t.Fatalf("income must not carry a category, got %q", tx.Category)
	}
	if tx.Title != "Salary" || tx.ID != "id-1" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestTransactionJSON(t *testing.T) {
	// Legacy payloads stored amounts as numbers and dates as ISO timestamps.
	raw := `{"id":"1","title":"Groceries","amount":200.5,"type":"expense","category":"Groceries","date":"2023-10-10T00:00:00.000Z"}`
	var tx Transaction
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("200.5")) {
		t.Fatalf("unexpected amount %s", tx.Amount)
	}
	if tx.Date.String() != "2023-10-10" {
		t.Fatalf("unexpected date %s", tx.Date)
	}

	income := Transaction{ID: "2", Title: "Salary", Amount: decimal.NewFromInt(10), Type: Income, Date: NewDate(2023, time.October, 1)}
	out, err := json.Marshal(income)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshal fields: %v", err)
	}
	if _, ok := fields["category"]; ok {
		t.Fatalf("category should be omitted for income: %s", out)
	}
	if fields["date"] != "2023-10-01" {
		t.Fatalf("unexpected date field: %v", fields["date"])
	}
}
