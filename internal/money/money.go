package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

const Places = 2

// Parse reads a decimal currency amount with at most two fractional digits.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckPlaces(value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// ParsePositive is Parse restricted to amounts strictly above zero.
func ParsePositive(input string) (decimal.Decimal, error) {
	value, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

func CheckPlaces(value decimal.Decimal) error {
	if !value.Equal(value.Truncate(Places)) {
		return ErrTooManyDecimals
	}
	return nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Places)
}

// Split divides an income amount into the part credited to the wallet and the
// part withheld into the tax vault. Rounding goes to the vault so the two
// parts always sum to amount.
func Split(amount, rate decimal.Decimal) (net, withheld decimal.Decimal) {
	if !rate.IsPositive() {
		return amount, decimal.Zero
	}
	if rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, amount
	}
	withheld = amount.Mul(rate).Round(Places)
	return amount.Sub(withheld), withheld
}

// ParseRate reads a fractional rate in [0, 1].
func ParseRate(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(trimmed)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return rate, nil
}
