package analytics

import "github.com/shopspring/decimal"

// NotApplicable is reported for metrics a cohort is too young to have.
const NotApplicable = "N/A"

// Percent formats part/whole*100 with one decimal, rounding half away from
// zero. A zero whole yields "0.0".
func Percent(part, whole int64) string {
	if whole == 0 {
		return "0.0"
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		StringFixed(1)
}

// Round1 rounds v to one decimal place.
func Round1(v decimal.Decimal) float64 {
	f, _ := v.Round(1).Float64()
	return f
}
