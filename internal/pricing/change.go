package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// SafeChangePercent returns the percentage change from past to current.
// A zero, NaN or infinite past price yields 0 instead of an error.
func SafeChangePercent(current, past float64) float64 {
	if past == 0 || math.IsNaN(past) || math.IsInf(past, 0) {
		return 0
	}
	return (current - past) / past * 100
}

// Round2 rounds a reported metric to two decimal places
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
