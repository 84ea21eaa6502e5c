package analytics

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Summary gathers every figure the dashboard shows for one reference month.
type Summary struct {
	Month              core.MonthKey
	Income             decimal.Decimal
	Expense            decimal.Decimal
	Balance            decimal.Decimal
	SpendingPercentage decimal.Decimal
	// SpendingDefined is false when there was no income this month.
	SpendingDefined bool
	Breakdown       []CategoryTotal
	MonthlyIncome   []MonthlyBucket
	// TotalExpenses and TotalIncome are all-time sums of the chart series.
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
	Count         int
}

// Summarize computes the dashboard figures for the month containing now.
func Summarize(txs []core.Transaction, now time.Time) Summary {
	s := Summary{
		Month:         core.MonthKey{Year: now.Year(), Month: now.Month()},
		Income:        TotalByType(txs, core.Income, now),
		Expense:       TotalByType(txs, core.Expense, now),
		Breakdown:     CategoryBreakdown(txs),
		MonthlyIncome: MonthlyIncomeSeries(txs),
		TotalExpenses: decimal.Zero,
		TotalIncome:   decimal.Zero,
		Count:         len(txs),
	}
	s.Balance = s.Income.Sub(s.Expense)
	s.SpendingPercentage, s.SpendingDefined = SpendingPercentage(txs, now)
	for _, c := range s.Breakdown {
		s.TotalExpenses = s.TotalExpenses.Add(c.Amount)
	}
	for _, b := range s.MonthlyIncome {
		s.TotalIncome = s.TotalIncome.Add(b.Amount)
	}
	return s
}

// Clone returns a copy whose slices do not alias s.
func (s Summary) Clone() Summary {
	s.Breakdown = slices.Clone(s.Breakdown)
	s.MonthlyIncome = slices.Clone(s.MonthlyIncome)
	return s
}
