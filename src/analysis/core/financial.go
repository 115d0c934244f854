package core

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in
// percent, rounded to two places. Zero when previous is zero.
func CalculateChangePercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}
