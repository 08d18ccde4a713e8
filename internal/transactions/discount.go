package transactions

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyDiscount charges total * (1 - pct/100), rounded half away from zero
// to whole currency units.
func ApplyDiscount(total int64, pct float64) int64 {
	if pct <= 0 {
		return total
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(hundred))
	if factor.IsNegative() {
		return 0
	}
	return decimal.NewFromInt(total).Mul(factor).Round(0).IntPart()
}
