package db

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a pgtype.Numeric (numeric(18,2) columns) to a
// decimal.Decimal for exact multi-currency decimal arithmetic.
func NumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN {
		return decimal.Zero, fmt.Errorf("numeric value is NaN")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// DecimalToNumeric converts a decimal.Decimal to pgtype.Numeric for writing
// to a numeric(18,2) column.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	coeff := d.Coefficient()
	return pgtype.Numeric{
		Int:              coeff,
		Exp:              d.Exponent(),
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
