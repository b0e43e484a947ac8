// Package money converts between user-entered decimal amounts and the integer
// cents stored in the ledger.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for non-numeric, non-positive or over-precise input.
var ErrInvalidAmount = errors.New("invalid amount")

// maxCents caps a single amount at one trillion dollars.
var maxCents = decimal.New(1, 14)

// Parse reads a positive amount with at most two fractional digits. A leading
// "$" is accepted.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return fromDecimal(d)
}

// FromFloat converts a numeric command option into cents, rounding to the
// nearest cent.
func FromFloat(f float64) (int64, error) {
	return fromDecimal(decimal.NewFromFloat(f).Round(2))
}

func fromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2)
	if cents.GreaterThanOrEqual(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// String renders cents as a plain two-decimal number, e.g. "10.00".
func String(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Format renders cents for display, e.g. "$10.00".
func Format(cents int64) string {
	if cents < 0 {
		return "-$" + String(-cents)
	}
	return "$" + String(cents)
}

// WholeUnits drops the fractional cents of a non-negative amount.
func WholeUnits(cents int64) int64 {
	if cents <= 0 {
		return 0
	}
	return cents / 100
}
