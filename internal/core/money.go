// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents everywhere inside the ledger. Decimal
// strings only exist at the edges (JSON payloads, logs), where they are
// converted with shopspring/decimal.
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxAmountCents bounds a single amount (10 trillion in major units) so
// that sums over any realistic ledger stay far inside int64.
const MaxAmountCents = 1_000_000_000_000_000

// ErrAmountOverflow is returned when a total no longer fits in int64 cents.
var ErrAmountOverflow = errors.New("amount overflow")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxAmountCents)
)

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative amounts are rejected; zero is allowed.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents (rounds up)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal converts d to Money with half-up rounding. Either sign is
// accepted; the magnitude must not exceed MaxAmountCents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: cents.IntPart()}, nil
}

func Cents(c int64) Money { return Money{Cents: c} }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

// CheckedAdd is Add that reports int64 overflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (Money, error) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, m, o)
	}
	return Money{Cents: sum}, nil
}

// CheckedSub is Sub that reports int64 overflow instead of wrapping.
func (m Money) CheckedSub(o Money) (Money, error) {
	if o.Cents == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrAmountOverflow, m, o)
	}
	return m.CheckedAdd(o.Neg())
}

func (m Money) IsZero() bool { return m.Cents == 0 }

// Validate checks the amount of a user-supplied record. Profits may be
// negative, recorded amounts may not.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string of either
// sign, so encoded profits decode back. Records reject negatives in Validate.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
