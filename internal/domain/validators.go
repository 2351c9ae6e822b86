package domain

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks that a currency code looks like ISO 4217.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return ErrValidation("invalid currency code: " + currency)
	}
	return nil
}

// ValidatePositiveAmount checks that an amount is strictly positive; a
// zero amount is rejected as invalid, not silently accepted as a no-op.
func ValidatePositiveAmount(amount Money) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return ErrValidation("amount must be positive")
	}
	return nil
}

// ValidateReferenceID checks that a partner-scoped idempotency key is
// present and reasonably bounded.
func ValidateReferenceID(ref string) error {
	if ref == "" {
		return ErrValidation("reference_id is required")
	}
	if len(ref) > 255 {
		return ErrValidation("reference_id too long")
	}
	return nil
}
