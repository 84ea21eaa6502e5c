package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Food          Category = "Food"
	Rent          Category = "Rent"
	Groceries     Category = "Groceries"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

// DateLayout is the calendar-date layout used for storage and transport.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Category classifies expenses. Only the values in Categories are
	// accepted for new transactions; persisted unknown values are kept as-is.
	Category string

	// Date is a calendar date without time-of-day semantics.
	Date struct {
		time.Time
	}

	// MonthKey identifies a calendar month and sorts chronologically.
	MonthKey struct {
		Year  int
		Month time.Month
	}

	// Transaction is an immutable income or expense record.
	Transaction struct {
		ID       string          `json:"id"`
		Title    string          `json:"title"`
		Amount   decimal.Decimal `json:"amount"`
		Type     TransactionType `json:"type"`
		Category Category        `json:"category,omitempty"`
		Date     Date            `json:"date"`
	}

	// Draft is a transaction that has not been assigned an ID yet.
	Draft struct {
		Title    string
		Amount   decimal.Decimal
		Type     TransactionType
		Category Category
		Date     Date
	}
)

// Categories lists the closed expense enumeration in display order.
var Categories = []Category{Food, Rent, Groceries, Entertainment, Other}

// TransactionTypes lists the accepted transaction types.
var TransactionTypes = []TransactionType{Income, Expense}

var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrMissingCategory = errors.New("category is required for expenses")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyDate       = errors.New("empty date")
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and, for older payloads, RFC 3339 timestamps.
// Only the calendar date is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t.Year(), t.Month(), t.Day()), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the calendar month the date falls in.
func (d Date) MonthKey() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Time.Month()}
}

// SameMonth reports whether d falls in the calendar month of ref.
func (d Date) SameMonth(ref time.Time) bool {
	return d.Year() == ref.Year() && d.Time.Month() == ref.Month()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// String returns the sortable "YYYY-MM" form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label returns the short human-readable form, e.g. "Oct 2023".
func (k MonthKey) Label() string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

func (d Draft) Validate() error {
	if len(strings.TrimSpace(d.Title)) == 0 {
		return ErrEmptyTitle
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Type.IsValid() {
		return ErrInvalidType
	}
	if d.Type == Expense {
		if d.Category == "" {
			return ErrMissingCategory
		}
		if !d.Category.IsValid() {
			return ErrInvalidCategory
		}
	}
	if d.Date.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

// NewTransaction validates the draft and stamps it with id. A category on an
// income draft is dropped so that only expenses ever carry one.
func NewTransaction(id string, d Draft) (Transaction, error) {
	if err := d.Validate(); err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		ID:       id,
		Title:    strings.TrimSpace(d.Title),
		Amount:   d.Amount,
		Type:     d.Type,
		Category: d.Category,
		Date:     d.Date,
	}
	if tx.Type == Income {
		tx.Category = ""
	}
	return tx, nil
}
