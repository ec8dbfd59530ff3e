package core

import "math"

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the relative change from previous to current.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// Mid returns the midpoint of a bid/ask pair.
func Mid(bid, ask float64) float64 {
	return (bid + ask) / 2
}

// -----------------------------------------------------------------------------

// IsFinite reports whether every value is a real number.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// IsValidOHLC checks low <= open,close <= high.
func IsValidOHLC(open, high, low, closePrice float64) bool {
	return low <= open && low <= closePrice && open <= high && closePrice <= high
}
