package shared

import "math"

// Round2 rounds a monetary amount to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to 1 decimal place, used for percentage displays.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
