// Package analytics derives totals and chart series from a snapshot of
// transactions. Every function is pure: the input slice is never modified and
// the reference time for month-scoped totals is passed in by the caller.
package analytics

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the all-time expense sum of one category.
type CategoryTotal struct {
	Category core.Category
	Amount   decimal.Decimal
	Color    string
}

// MonthlyBucket is the income sum of one calendar month.
type MonthlyBucket struct {
	Key    core.MonthKey
	Label  string
	Amount decimal.Decimal
}

// TotalByType sums the amounts of type t dated in the calendar month of now.
func TotalByType(txs []core.Transaction, t core.TransactionType, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type == t && tx.Date.SameMonth(now) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// TotalByCategory sums the amounts carrying exactly category c, all-time.
func TotalByCategory(txs []core.Transaction, c core.Category) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Category == c {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Balance is this month's income minus this month's expenses.
func Balance(txs []core.Transaction, now time.Time) decimal.Decimal {
	return TotalByType(txs, core.Income, now).Sub(TotalByType(txs, core.Expense, now))
}

// SpendingPercentage is this month's expenses as a percentage of this month's
// income. It reports false, with a zero value, when there is no income to
// divide by.
func SpendingPercentage(txs []core.Transaction, now time.Time) (decimal.Decimal, bool) {
	income := TotalByType(txs, core.Income, now)
	if income.IsZero() {
		return decimal.Zero, false
	}
	return TotalByType(txs, core.Expense, now).Div(income).Mul(hundred), true
}

// CategoryBreakdown returns the non-zero expense totals per category. Known
// categories come first in enumeration order, followed by any unknown
// category found in the data in first-seen order.
func CategoryBreakdown(txs []core.Transaction) []CategoryTotal {
	expenses := Filter(txs, FilterExpense)

	order := slices.Clone(core.Categories)
	for _, tx := range expenses {
		if tx.Category != "" && !slices.Contains(order, tx.Category) {
			order = append(order, tx.Category)
		}
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		amount := TotalByCategory(expenses, c)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, CategoryTotal{Category: c, Amount: amount, Color: CategoryColor(c)})
	}
	return out
}

// MonthlyIncomeSeries groups income by calendar month, oldest month first.
func MonthlyIncomeSeries(txs []core.Transaction) []MonthlyBucket {
	sums := make(map[core.MonthKey]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Income {
			continue
		}
		key := tx.Date.MonthKey()
		if cur, ok := sums[key]; ok {
			sums[key] = cur.Add(tx.Amount)
		} else {
			sums[key] = tx.Amount
		}
	}

	out := make([]MonthlyBucket, 0, len(sums))
	for key, amount := range sums {
		out = append(out, MonthlyBucket{Key: key, Label: key.Label(), Amount: amount})
	}
	slices.SortFunc(out, func(a, b MonthlyBucket) int {
		switch {
		case a.Key.Before(b.Key):
			return -1
		case b.Key.Before(a.Key):
			return 1
		default:
			return 0
		}
	})
	return out
}
