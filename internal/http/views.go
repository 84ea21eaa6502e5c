package http

import (
	"github.com/shopspring/decimal"

	"budget/internal/analytics"
	"budget/internal/core"
)

type amountView struct {
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

type transactionView struct {
	core.Transaction
	Display string `json:"display"`
}

type listView struct {
	Version      uint64               `json:"version"`
	Filter       analytics.TypeFilter `json:"filter"`
	FilterLabel  string               `json:"filter_label"`
	Sort         analytics.SortOrder  `json:"sort"`
	Count        int                  `json:"count"`
	Transactions []transactionView    `json:"transactions"`
}

type createdView struct {
	Transaction transactionView `json:"transaction"`
	Persisted   bool            `json:"persisted"`
}

type categoryView struct {
	Category core.Category    `json:"category"`
	Color    string           `json:"color"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Display  string           `json:"display,omitempty"`
	// Share is the category's percentage of all-time expenses.
	Share *decimal.Decimal `json:"share,omitempty"`
}

type bucketView struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

type summaryView struct {
	Month      string `json:"month"`
	MonthLabel string `json:"month_label"`
	Currency   string `json:"currency"`
	Count      int    `json:"count"`

	Income  amountView `json:"income"`
	Expense amountView `json:"expense"`
	Balance amountView `json:"balance"`

	// SpendingPercentage is null when there was no income this month.
	SpendingPercentage *decimal.Decimal `json:"spending_percentage"`
	SpendingDisplay    string           `json:"spending_display"`

	Breakdown     []categoryView `json:"breakdown"`
	MonthlyIncome []bucketView   `json:"monthly_income"`
	TotalExpenses amountView     `json:"total_expenses"`
	TotalIncome   amountView     `json:"total_income"`
}

var hundred = decimal.NewFromInt(100)

func (s *Server) amount(d decimal.Decimal) amountView {
	return amountView{Amount: d, Display: core.FormatMoney(d, s.currency)}
}

func (s *Server) transactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = transactionView{Transaction: tx, Display: core.FormatMoney(tx.Amount, s.currency)}
	}
	return out
}

func (s *Server) summaryView(sum analytics.Summary) summaryView {
	v := summaryView{
		Month:           sum.Month.String(),
		MonthLabel:      sum.Month.Label(),
		Currency:        s.currency,
		Count:           sum.Count,
		Income:          s.amount(sum.Income),
		Expense:         s.amount(sum.Expense),
		Balance:         s.amount(sum.Balance),
		SpendingDisplay: "n/a",
		Breakdown:       make([]categoryView, 0, len(sum.Breakdown)),
		MonthlyIncome:   make([]bucketView, 0, len(sum.MonthlyIncome)),
		TotalExpenses:   s.amount(sum.TotalExpenses),
		TotalIncome:     s.amount(sum.TotalIncome),
	}
	if sum.SpendingDefined {
		pct := sum.SpendingPercentage.Round(2)
		v.SpendingPercentage = &pct
		v.SpendingDisplay = pct.StringFixed(0) + "%"
	}

	for _, c := range sum.Breakdown {
		amt := c.Amount
		cv := categoryView{
			Category: c.Category,
			Color:    c.Color,
			Amount:   &amt,
			Display:  core.FormatMoney(c.Amount, s.currency),
		}
		if sum.TotalExpenses.IsPositive() {
			share := c.Amount.Mul(hundred).Div(sum.TotalExpenses).Round(1)
			cv.Share = &share
		}
		v.Breakdown = append(v.Breakdown, cv)
	}

	for _, b := range sum.MonthlyIncome {
		v.MonthlyIncome = append(v.MonthlyIncome, bucketView{
			Key:     b.Key.String(),
			Label:   b.Label,
			Amount:  b.Amount,
			Display: core.FormatMoney(b.Amount, s.currency),
		})
	}
	return v
}
