// Money helpers shared by the projection packages. Internal arithmetic
// keeps full decimal precision; RoundCents applies half-up rounding at
// two places and is called only when a year record is assembled.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MonthsPerYear is the number of months in a year.
const MonthsPerYear = 12

var (
	months  = decimal.NewFromInt(MonthsPerYear)
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	// maxBalance bounds compounding; crossing it fails the run with
	// ErrNumeric.
	maxBalance = decimal.New(1, 18)
)

// Rate converts a percent-valued input (5 meaning 5%) to a fraction.
func Rate(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// Annual converts a monthly amount to its annual total.
func Annual(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(months)
}

// Compound returns (1+rate)^years for a fractional rate and a
// non-negative integer year count.
func Compound(rate decimal.Decimal, years int) decimal.Decimal {
	if years <= 0 || rate.IsZero() {
		return one
	}
	return one.Add(rate).Pow(decimal.NewFromInt(int64(years)))
}

// RoundCents rounds half-up to whole cents for presentation.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CheckBalance guards against runaway compounding.
func CheckBalance(name string, balance decimal.Decimal) error {
	if balance.GreaterThan(maxBalance) {
		return fmt.Errorf("%w: balance of %s exceeds representable range", ErrNumeric, name)
	}
	return nil
}
