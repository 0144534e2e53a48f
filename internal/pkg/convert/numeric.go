// Package convert provides numeric conversion helpers shared by the market
// and account packages.
package convert

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds half away from zero on the decimal representation of v, so
// 1.005 becomes 1.01 the way a price display would show it.
// NaN and Inf collapse to 0.
func Round(v float64, places int32) float64 {
	if !Finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 is Round(v, 2).
func Round2(v float64) float64 {
	return Round(v, 2)
}

func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Decimal converts a float to decimal, mapping NaN/Inf to zero.
func Decimal(v float64) decimal.Decimal {
	if !Finite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Float converts back to float64.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
