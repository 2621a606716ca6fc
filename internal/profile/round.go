package profile

import "github.com/shopspring/decimal"

// roundTo rounds v to places decimal digits using the shortest decimal
// representation of v, so 107.00000000000001 reports as 107.
func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func round2(v float64) float64 { return roundTo(v, 2) }

func round3(v float64) float64 { return roundTo(v, 3) }

func ptr(v float64) *float64 { return &v }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
