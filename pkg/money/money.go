// Package money holds the decimal helpers shared by the escrow services.
//
// Amounts are carried as shopspring decimals in major units (1.5 = one and a
// half USDC) and converted to integer minor units only at the ledger edge.
package money

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits the ledger token supports.
const Decimals = 6

// Normalize rounds d to the ledger precision.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Decimals)
}

// Parse converts a decimal string into a normalized amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Normalize(d), nil
}

// ToUnits converts d to the smallest ledger unit, truncating past Decimals.
func ToUnits(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).Truncate(0).BigInt()
}

// FromUnits converts smallest-unit integers back into a decimal amount.
func FromUnits(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -Decimals)
}

// WithinTolerance reports whether |a-b| <= tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
