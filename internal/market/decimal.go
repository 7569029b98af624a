package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// OutputPlaces is the number of decimal places calculator outputs are rounded to
const OutputPlaces = 6

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
)

// Round6 rounds half-to-even to six places
func Round6(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(OutputPlaces)
}

// Clamp bounds d to [lo, hi]
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Clamp01 bounds d to [0, 1]
func Clamp01(d decimal.Decimal) decimal.Decimal {
	return Clamp(d, Zero, One)
}

// MinDecimal returns the smaller of a and b
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Mean returns the arithmetic mean, or zero for an empty slice
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return Zero
	}
	return decimal.Sum(Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// SampleStdDev returns the sample (n-1) standard deviation. Fewer than two values give zero.
func SampleStdDev(values []decimal.Decimal) decimal.Decimal {
	n := len(values)
	if n < 2 {
		return Zero
	}
	mean := Mean(values)
	sum := Zero
	for _, v := range values {
		d := v.Sub(mean)
		sum = sum.Add(d.Mul(d))
	}
	return Sqrt(sum.Div(decimal.NewFromInt(int64(n - 1))))
}

// Sqrt computes a square root with Newton iterations seeded from the float64 root.
// decimal.Decimal has no native square root.
func Sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return Zero
	}
	guess := decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
	if guess.IsZero() {
		guess = d
	}
	for i := 0; i < 4; i++ {
		guess = guess.Add(d.DivRound(guess, 24)).DivRound(two, 24)
	}
	return guess
}

// Sign returns -1, 0 or +1 for a - b
func Sign(a, b decimal.Decimal) int {
	return a.Cmp(b)
}
