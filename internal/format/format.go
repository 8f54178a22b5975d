// Package format turns core values into display strings. Currency follows the
// Hungarian forint convention regardless of transaction content; that is a
// display choice, not a conversion.
package format

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pengo/internal/core"
)

var hu = message.NewPrinter(language.Hungarian)

// MonthLabel renders a YYYY-MM key as a long month name with the year, e.g.
// "March 2024". A malformed key renders as itself so a broken grouping bucket
// still gets a header instead of crashing the view.
func MonthLabel(key core.MonthKey) string {
	t, err := time.Parse("2006-01", string(key))
	if err != nil {
		return string(key)
	}
	return t.Format("January 2006")
}

// Currency renders an amount as forint with Hungarian digit grouping and a
// decimal comma, e.g. "2 000,00 Ft". Formatting works from cents so totals
// never pass through floats.
func Currency(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	s := hu.Sprintf("%d", whole) + hu.Sprintf(",%02d Ft", frac)
	if neg {
		return "-" + s
	}
	return s
}

// DateLabel renders a transaction's date for the table. When the backend sent
// an unparsable date the raw wire string is shown as-is; a transaction with
// neither gets a fixed placeholder.
func DateLabel(tx core.Transaction) string {
	if tx.Date.IsZero() {
		if tx.RawDate != "" {
			return tx.RawDate
		}
		return "(no date)"
	}
	return tx.Date.Format("Jan 2, 2006")
}
