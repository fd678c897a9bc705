// Package money centralizes monetary arithmetic conventions.
//
// Every amount in the system is a shopspring decimal quantized to two
// fraction digits; float64 never touches money. Postgres numeric columns
// cross the pgx boundary as pgtype.Numeric and are converted here.
package money

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Quantize rounds d to 2 decimal places, half away from zero.
// For the non-negative amounts this system stores that is round-half-up,
// the conventional rule for currency.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent applies pct (0-100) to base and quantizes the result.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Quantize(base.Mul(pct).Div(decimal.NewFromInt(100)))
}

// ClampZero returns d, or zero if d is negative. Balances are never
// stored negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ToNumeric converts a decimal to pgtype.Numeric at 2 decimal places.
func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// FromNumeric converts a pgtype.Numeric to a decimal. Null or
// unparseable values come back as zero; money columns are NOT NULL so
// this only matters for aggregate queries over empty sets.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
