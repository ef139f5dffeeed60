// Package money parses and formats monetary amounts. Amounts travel through the
// services as int64 minor units (cents); decimal strings exist only at the edges.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "walletgate/pkg/domain-errors"
)

// Cents is an amount in minor units.
type Cents int64

// maxCents caps a single operation at 10 million in major units.
const maxCents = Cents(1_000_000_000)

var (
	hundred = decimal.NewFromInt(100)
	// maxAmount is maxCents in major units, compared before any int64 conversion.
	maxAmount = decimal.New(int64(maxCents), -2)
)

// Parse converts a decimal string such as "60.00" into cents. The value must be
// positive with at most two fractional digits.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, amountError("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, amountError("amount must be a number")
	}
	return FromDecimal(d)
}

// FromDecimal validates a decimal amount and converts it to cents.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	if !d.IsPositive() {
		return 0, amountError("amount must be positive")
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, amountError("amount must have at most 2 decimal places")
	}
	if d.GreaterThan(maxAmount) {
		return 0, amountError("amount exceeds the per-operation limit")
	}
	c := Cents(d.Mul(hundred).IntPart())
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return c, nil
}

// ValidateInbound checks an amount reported by the provider, such as a
// deposit. The per-operation limit applies only to movements we initiate.
func (c Cents) ValidateInbound() error {
	if c <= 0 {
		return amountError("amount must be positive")
	}
	return nil
}

// Validate checks an amount already expressed in cents against the
// per-operation limit.
func (c Cents) Validate() error {
	if err := c.ValidateInbound(); err != nil {
		return err
	}
	if c > maxCents {
		return amountError("amount exceeds the per-operation limit")
	}
	return nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with two fractional digits.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

func amountError(msg string) error {
	return dErrors.Validation(dErrors.FieldError{Field: "amount", Message: msg})
}
