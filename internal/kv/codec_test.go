package kv

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func TestEncodeDecodeKeepsOrder(t *testing.T) {
	txs := []core.Transaction{
		{ID: "2", Title: "Rent", Amount: decimal.NewFromInt(1500), Type: core.Expense, Category: core.Rent, Date: core.NewDate(2023, time.October, 5)},
		{ID: "1", Title: "Salary", Amount: decimal.NewFromInt(5000), Type: core.Income, Date: core.NewDate(2023, time.October, 1)},
	}
	data, err := EncodeTransactions(txs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeTransactions(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("unexpected collection: %+v", got)
	}
	if got[0].Category != core.Rent || !got[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("fields lost in round trip: %+v", got[0])
	}
}

func TestDecodeEdgeCases(t *testing.T) {
	for _, in := range []string{"", "null", "  [] "} {
		got, err := DecodeTransactions([]byte(in))
		if err != nil || len(got) != 0 {
			t.Fatalf("%q: expected empty collection, got %v (err=%v)", in, got, err)
		}
	}
	if _, err := DecodeTransactions([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}

	dup := `[{"id":"1","title":"a","amount":1,"type":"income","date":"2023-10-01"},
	         {"id":"1","title":"b","amount":2,"type":"income","date":"2023-10-02"}]`
	got, err := DecodeTransactions([]byte(dup))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("expected first record to win, got %+v", got)
	}

	empty, err := EncodeTransactions(nil)
	if err != nil || string(empty) != "[]" {
		t.Fatalf("nil collection encoded as %q (err=%v)", empty, err)
	}
}
