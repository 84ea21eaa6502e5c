// Package form models the add-transaction form: field-level validation that
// gates submission, amount keystroke sanitisation and conversion of valid
// input into a core.Draft.
package form

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"budget/internal/core"
)

// validate is safe for concurrent use and caches parsed tags.
var validate = validator.New()

// present reports whether s holds something other than whitespace.
func present(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required") == nil
}

// Field-level messages shown next to the offending input.
const (
	MsgTitleRequired    = "Title is required"
	MsgAmountRequired   = "Amount is required"
	MsgAmountInvalid    = "Please enter a valid amount"
	MsgCategoryRequired = "Category is required for expenses"
	MsgTypeInvalid      = "Type must be income or expense"
	MsgDateRequired     = "Date is required"
	MsgDateInvalid      = "Please enter a valid date"
)

// Form holds the raw user input, exactly as typed.
type Form struct {
	Title    string               `json:"title"`
	Amount   string               `json:"amount"`
	Type     core.TransactionType `json:"type"`
	Category core.Category        `json:"category,omitempty"`
	Date     string               `json:"date"`
}

// Errors carries one message per invalid field; empty strings mean valid.
type Errors struct {
	Title    string `json:"title,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
}

// New returns a blank form defaulting to an expense dated today.
func New(now time.Time) Form {
	return Form{
		Type: core.Expense,
		Date: now.Format(core.DateLayout),
	}
}

// Validate evaluates every field independently.
func (f Form) Validate() Errors {
	var errs Errors

	if !present(f.Title) {
		errs.Title = MsgTitleRequired
	}

	if !present(f.Amount) {
		errs.Amount = MsgAmountRequired
	} else if amount, err := core.ParseAmount(f.Amount); err != nil || validate.Var(amount.InexactFloat64(), "gt=0") != nil {
		errs.Amount = MsgAmountInvalid
	}

	if !f.Type.IsValid() {
		errs.Type = MsgTypeInvalid
	}

	// Only the closed enumeration can be picked, so anything else counts as missing.
	if f.Type == core.Expense && !f.Category.IsValid() {
		errs.Category = MsgCategoryRequired
	}

	if !present(f.Date) {
		errs.Date = MsgDateRequired
	} else if _, err := core.ParseDate(f.Date); err != nil {
		errs.Date = MsgDateInvalid
	}

	return errs
}

// Valid reports whether the form may be submitted.
func (f Form) Valid() bool {
	return f.Validate().Empty()
}

// Draft converts a valid form. Invalid input is returned as Errors.
func (f Form) Draft() (core.Draft, error) {
	if errs := f.Validate(); !errs.Empty() {
		return core.Draft{}, errs
	}
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Draft{}, Errors{Amount: MsgAmountInvalid}
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.Draft{}, Errors{Date: MsgDateInvalid}
	}
	d := core.Draft{
		Title:  strings.TrimSpace(f.Title),
		Amount: amount,
		Type:   f.Type,
		Date:   date,
	}
	if f.Type == core.Expense {
		d.Category = f.Category
	}
	return d, nil
}

// Empty reports whether no field has an error.
func (e Errors) Empty() bool {
	return e == Errors{}
}

// Fields returns the non-empty messages keyed by field name.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, 5)
	for name, msg := range map[string]string{
		"title":    e.Title,
		"amount":   e.Amount,
		"type":     e.Type,
		"category": e.Category,
		"date":     e.Date,
	} {
		if msg != "" {
			out[name] = msg
		}
	}
	return out
}

func (e Errors) Error() string {
	var msgs []string
	for _, msg := range []string{e.Title, e.Amount, e.Type, e.Category, e.Date} {
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}
