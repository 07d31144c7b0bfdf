// Package types provides common type aliases and utilities.
package types

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// CostScale is the number of fractional digits kept for unit costs.
const CostScale int32 = 4

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Sum adds all values.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// WeightedAverage returns totalCost / totalQuantity rounded to CostScale,
// or zero when there is no quantity.
func WeightedAverage(totalCost Money, totalQuantity int64) Money {
	if totalQuantity <= 0 {
		return decimal.Zero
	}
	return totalCost.DivRound(decimal.NewFromInt(totalQuantity), CostScale)
}

// Hours returns the elapsed hours between start and end rounded to two decimals.
// A non-positive interval yields zero.
func Hours(start, end time.Time) float64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return math.Round(d.Hours()*100) / 100
}
