// Money parsing helpers.
//
// Manual entry amounts arrive as unsigned decimal strings; the sign is
// derived from the selected category afterwards. Amounts are held in cents to
// keep summation exact.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseUnsignedCents converts an unsigned decimal string to cents. Both dot
// and comma decimal separators are accepted; a third decimal digit rounds
// half-up. Signs, blanks, and anything non-numeric fail with
// ErrInvalidAmount. Zero is allowed: the reference UI accepts a zero entry
// and classifies it as an expense.
func ParseUnsignedCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" && len(parts) == 2 {
		return 0, ErrInvalidAmount // bare "." or trailing dot with no digits
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// Decimal renders the amount as a plain signed decimal string ("-250" or
// "12.34"), the wire format the backend expects for submissions. Whole
// amounts drop the fraction, matching what the reference UI sends.
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	var s string
	if frac == 0 {
		s = strconv.FormatInt(whole, 10)
	} else {
		s = strconv.FormatInt(whole, 10) + "." + twoDigits(frac)
	}
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
