package analytics

import (
	"fmt"
	"slices"
	"strings"

	"budget/internal/core"
)

const (
	FilterAll     TypeFilter = "all"
	FilterIncome  TypeFilter = "income"
	FilterExpense TypeFilter = "expense"
)

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type (
	// TypeFilter narrows a collection to one transaction type, or keeps it whole.
	TypeFilter string

	// SortOrder is the direction of the date ordering.
	SortOrder string
)

// Filters lists the filter choices in the order they are offered to users.
var Filters = []TypeFilter{FilterAll, FilterIncome, FilterExpense}

// ParseTypeFilter maps user input to a filter; empty input means FilterAll.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch f := TypeFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterIncome, FilterExpense:
		return f, nil
	default:
		return "", fmt.Errorf("invalid filter %q: must be one of %v", s, Filters)
	}
}

// Label is the display form of the filter, e.g. "Expense".
func (f TypeFilter) Label() string {
	return core.Capitalize(string(f))
}

// ParseSortOrder maps user input to an order; empty input means Descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return Descending, nil
	case Ascending, Descending:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order %q: must be %q or %q", s, Ascending, Descending)
	}
}

// Toggle returns the opposite direction.
func (o SortOrder) Toggle() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// Filter returns the transactions matching f in their original order.
// FilterAll returns a copy of the whole input.
func Filter(txs []core.Transaction, f TypeFilter) []core.Transaction {
	if f == FilterAll || f == "" {
		return slices.Clone(txs)
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if string(tx.Type) == string(f) {
			out = append(out, tx)
		}
	}
	return out
}

// SortByDate returns a copy of txs ordered by date. Transactions sharing a
// date keep their insertion order in both directions.
func SortByDate(txs []core.Transaction, order SortOrder) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		c := a.Date.Compare(b.Date.Time)
		if order == Ascending {
			return c
		}
		return -c
	})
	return out
}

// List applies the filter and then the sort, as the transaction list does.
func List(txs []core.Transaction, f TypeFilter, order SortOrder) []core.Transaction {
	return SortByDate(Filter(txs, f), order)
}
