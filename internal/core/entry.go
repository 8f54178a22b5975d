package core

import "strings"

// PendingEntry holds the manual-entry form fields as typed by the user. It is
// transient: after a successful submission the page reloads and the
// authoritative state is refetched, so nothing here is kept.
type PendingEntry struct {
	Date        string // YYYY-MM-DD from the date input
	Category    string
	Description string
	RawAmount   string // unsigned; sign is derived from Category
}

// Submission is the payload sent to the backend for a manual entry. Amount is
// already signed.
type Submission struct {
	Date        string
	Category    string
	Description string
	Amount      Money
}

// BuildSubmission validates a pending entry and derives the signed amount:
// the Expense category negates the raw amount, every other category keeps it.
// The category string passes through unchanged; it is never reconciled with
// the sign afterwards. Any blank field aborts before a network call is made.
func BuildSubmission(p PendingEntry) (Submission, error) {
	if strings.TrimSpace(p.Date) == "" {
		return Submission{}, ErrEmptyDate
	}
	if strings.TrimSpace(p.Category) == "" {
		return Submission{}, ErrEmptyCategory
	}
	if strings.TrimSpace(p.RawAmount) == "" {
		return Submission{}, ErrInvalidAmount
	}
	if strings.TrimSpace(p.Description) == "" {
		return Submission{}, ErrEmptyDescription
	}

	cents, err := ParseUnsignedCents(p.RawAmount)
	if err != nil {
		return Submission{}, err
	}
	amount := Money{Cents: cents}
	if p.Category == CategoryExpense {
		amount = amount.Negated()
	}

	return Submission{
		Date:        strings.TrimSpace(p.Date),
		Category:    p.Category,
		Description: strings.TrimSpace(p.Description),
		Amount:      amount,
	}, nil
}
