// Wire decoding for the external expense backend.
//
// The backend is loose about types: ids and amounts arrive as strings or
// numbers, dates as a handful of ISO-ish layouts. Decoding maps every record
// into the typed core.Transaction shape at the boundary and flags what it
// cannot parse instead of letting NaN-like values leak into the view.
package api

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"pengo/internal/core"
)

// wireTransaction mirrors one record of GET /api/expenses.
type wireTransaction struct {
	ID          json.RawMessage `json:"id"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
}

// dateLayouts are tried in order. The original backend stores whatever the
// statement parser produced, so both ISO dates and "Jan 2, 2006" show up.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

func (w wireTransaction) toTransaction() core.Transaction {
	tx := core.Transaction{
		ID:          decodeID(w.ID),
		RawDate:     w.Date,
		Category:    w.Category,
		Description: w.Description,
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(w.Date)); err == nil {
			tx.Date = t
			break
		}
	}
	tx.Amount = decodeAmount(w.Amount)
	return tx
}

// decodeID accepts string or numeric ids and normalizes them to strings.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// decodeAmount accepts signed decimals as strings or numbers. Unparsable
// amounts become zero, which the totals classify as expense; the record still
// renders rather than aborting the whole statement.
func decodeAmount(raw json.RawMessage) core.Money {
	if len(raw) == 0 {
		return core.Money{}
	}
	s := string(raw)
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = str
	}
	return core.Money{Cents: parseSignedCents(strings.TrimSpace(s))}
}

func parseSignedCents(s string) int64 {
	if s == "" {
		return 0
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	cents, err := core.ParseUnsignedCents(s)
	if err != nil {
		// Last resort for exotic numeric forms (exponents etc).
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		cents = int64(math.Round(f * 100))
	}
	if neg {
		return -cents
	}
	return cents
}
