package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(data) == 0 {
		return decimal.Zero, decimal.Zero
	}

	n := decimal.NewFromInt(int64(len(data)))
	mean := decimal.Sum(data[0], data[1:]...).DivRound(n, 8)

	if len(data) == 1 {
		return mean, decimal.Zero
	}

	varianceSum := decimal.Zero
	for _, v := range data {
		d := v.Sub(mean)
		varianceSum = varianceSum.Add(d.Mul(d))
	}
	variance := varianceSum.DivRound(n, 8).InexactFloat64()
	return mean, decimal.NewFromFloat(math.Sqrt(variance))
}

// -----------------------------------------------------------------------------

// CalculateMinMax returns the lowest and highest value.
func CalculateMinMax(data []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(data) == 0 {
		return decimal.Zero, decimal.Zero
	}
	return decimal.Min(data[0], data[1:]...), decimal.Max(data[0], data[1:]...)
}
