package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	// CategoryExpense is the only category that flips the sign of a manual
	// entry. Every other category string is treated as income.
	CategoryExpense = "Expense"
	CategoryIncome  = "Income"

	// ScopeAll selects the whole statement instead of a single month.
	ScopeAll = "all"
)

// MonthKeyUnknown groups transactions whose date could not be decoded.
const MonthKeyUnknown = MonthKey("0000-00")

type (
	// MonthKey is a YYYY-MM grouping key. Lexicographic order coincides with
	// chronological order as long as years stay four digits.
	MonthKey string

	// Money is a signed amount in cents. The sign is the sole source of truth
	// for income/expense classification; the category on a transaction is
	// display-only and never cross-checked against it.
	Money struct {
		Cents int64
	}

	// Transaction is one statement line as decoded from the backend. RawDate
	// keeps the wire string so the view can still show something when Date
	// failed to parse (Date is then the zero time).
	Transaction struct {
		ID          string
		Date        time.Time
		RawDate     string
		Category    string
		Description string
		Amount      Money
	}
)

var (
	ErrEmptyDate        = errors.New("empty date")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Key derives the grouping key from the transaction's local year and 1-based
// zero-padded month. Zero dates land in MonthKeyUnknown.
func (t Transaction) Key() MonthKey {
	if t.Date.IsZero() {
		return MonthKeyUnknown
	}
	return MonthKey(fmt.Sprintf("%04d-%02d", t.Date.Year(), int(t.Date.Month())))
}

// IsExpense reports whether the amount counts toward the expense total.
// An amount of exactly zero is an expense.
func (m Money) IsExpense() bool {
	return m.Cents <= 0
}

// Negated returns the amount with the opposite sign.
func (m Money) Negated() Money {
	return Money{Cents: -m.Cents}
}
