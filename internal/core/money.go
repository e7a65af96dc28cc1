// Package core provides the domain records and money handling shared by
// the sync, storage and aggregation layers.
//
// Amounts are kept in integer minor units (cents) so sums never drift;
// decimal.Decimal is used at the edges for parsing, division and rendering.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MoneyFromDecimal converts currency units to Money, rounding half away
// from zero at the cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// ParseMoney parses a signed decimal amount such as "-123.45".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, err
	}
	return MoneyFromDecimal(d), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders a plain JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Mul scales by an integer factor, e.g. a monthly figure to an annual one.
func (m Money) Mul(n int64) Money { return Money{Cents: m.Cents * n} }

// Div divides and rounds to the cent. A non-positive divisor is treated as 1.
func (m Money) Div(n int64) Money {
	if n < 1 {
		n = 1
	}
	return MoneyFromDecimal(m.Decimal().Div(decimal.NewFromInt(n)))
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// PercentChange returns (current-previous)/previous*100 rounded to one
// decimal. ok is false when previous is zero and the change is undefined.
func PercentChange(current, previous Money) (pct decimal.Decimal, ok bool) {
	if previous.IsZero() {
		return decimal.Zero, false
	}
	diff := current.Sub(previous).Decimal()
	return diff.Div(previous.Decimal()).Mul(decimal.NewFromInt(100)).Round(1), true
}
