package domain

import "github.com/shopspring/decimal"

// Money is an exact decimal amount, stored as numeric(18,2). All wallet
// and transaction arithmetic goes through this type so rounding never
// leaks in from float64.
type Money = decimal.Decimal

// ZeroMoney is the additive identity for Money.
func ZeroMoney() Money { return decimal.Zero }

// ParseMoney parses a decimal string into Money, returning a validation
// error for malformed input. It does not check the sign; callers use
// ValidatePositiveAmount for that.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrValidation("invalid amount: " + err.Error())
	}
	return d, nil
}

// RoundMoney rounds to 2 decimal places, half away from zero (10.555
// becomes 10.56), banker's-rounding-free — the
// platform never adjusts amounts supplied by callers, it only validates them.
func RoundMoney(m Money) Money {
	return m.Round(2)
}
