// Package money normalises ledger amounts and holds the fixed cross-currency policy.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every stored amount carries.
const Scale = 2

var (
	// CrossRate is applied whenever source and destination currencies differ.
	CrossRate = decimal.RequireFromString("0.98")
	// FeeRate is the proportional cross-currency fee (50 bps).
	FeeRate = decimal.RequireFromString("0.005")
	// MinFee is the floor for any cross-currency fee.
	MinFee = decimal.NewFromInt(1)

	// MaxAmount is the largest value that fits NUMERIC(18,2).
	MaxAmount = decimal.RequireFromString("9999999999999999.99")
)

var (
	ErrNonPositive     = errors.New("amount must be greater than zero")
	ErrUnrepresentable = errors.New("amount exceeds representable range")
	ErrCurrency        = errors.New("currency must be a 3-letter ISO code")
)

// Normalize rounds to Scale places, half away from zero.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Positive normalises d and rejects amounts that are zero, negative or too large
// after rounding.
func Positive(d decimal.Decimal) (decimal.Decimal, error) {
	n := Normalize(d)
	if !n.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	if n.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrUnrepresentable
	}
	return n, nil
}

// Parse reads a decimal string and validates it with Positive.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Positive(d)
}

// Currency upper-cases and validates an ISO-4217 style code.
func Currency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 3 {
		return "", ErrCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", ErrCurrency
		}
	}
	return c, nil
}

// Conversion is the rate/fee pair applied to a transfer.
type Conversion struct {
	Rate decimal.Decimal
	Fee  decimal.Decimal
}

// Convert returns the fixed policy for moving amount from source to destination:
// rate 1 and no fee for same-currency, otherwise CrossRate and max(MinFee, amount*FeeRate).
func Convert(source, destination string, amount decimal.Decimal) Conversion {
	if strings.EqualFold(source, destination) {
		return Conversion{Rate: decimal.NewFromInt(1), Fee: decimal.Zero}
	}
	fee := Normalize(amount.Mul(FeeRate))
	if fee.LessThan(MinFee) {
		fee = MinFee
	}
	return Conversion{Rate: CrossRate, Fee: fee}
}
