// Package commission implements the tiered delivery commission schedule.
package commission

import "github.com/shopspring/decimal"

// Tier rates expressed in percent.
const (
	RateSmall   = 15
	RateMedium  = 12
	RateDefault = 10
)

var (
	smallCeiling  = decimal.RequireFromString("49.99")
	mediumFloor   = decimal.NewFromInt(50)
	mediumCeiling = decimal.RequireFromString("99.99")
)

// Rate maps a transaction value to its commission percentage.
//
// The schedule is V < 49.99 → 15%, 50 ≤ V ≤ 99.99 → 12%, everything else → 10%.
// Values in [49.99, 50) are not covered by the first two tiers and resolve to
// the default rate; historical invoices were priced that way.
func Rate(value decimal.Decimal) int {
	switch {
	case value.LessThan(smallCeiling):
		return RateSmall
	case value.GreaterThanOrEqual(mediumFloor) && value.LessThanOrEqual(mediumCeiling):
		return RateMedium
	default:
		return RateDefault
	}
}

// Amount returns value * rate / 100 without rounding.
func Amount(value, rate decimal.Decimal) decimal.Decimal {
	return value.Mul(rate).Shift(-2)
}

// AmountForValue applies the tier schedule and returns the rate and the
// unrounded commission.
func AmountForValue(value decimal.Decimal) (int, decimal.Decimal) {
	rate := Rate(value)
	return rate, Amount(value, decimal.NewFromInt(int64(rate)))
}

// Cents rounds a money value half away from zero to two decimal places.
func Cents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// WithinCent reports whether two amounts differ by at most one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(oneCent)
}

var oneCent = decimal.New(1, -2)
