package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUnsignedCents(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true}, // third digit rounds half-up
		{"12.346", 1235, true},
		{"250", 25000, true},
		{"0", 0, true}, // zero entries are allowed and count as expense
		{".5", 50, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{".", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseUnsignedCents(tc.in)
		if tc.ok {
			assert.NoError(t, err, "in=%q", tc.in)
			assert.Equal(t, tc.cents, got, "in=%q", tc.in)
		} else {
			assert.Error(t, err, "in=%q", tc.in)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	assert.Equal(t, "-250", Money{Cents: -25000}.Decimal())
	assert.Equal(t, "250", Money{Cents: 25000}.Decimal())
	assert.Equal(t, "12.34", Money{Cents: 1234}.Decimal())
	assert.Equal(t, "-0.05", Money{Cents: -5}.Decimal())
	assert.Equal(t, "0", Money{Cents: 0}.Decimal())
}
