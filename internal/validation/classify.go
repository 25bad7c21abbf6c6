package validation

import "math"

const (
	// DefaultTolerance is the fraction of the online price treated as normal variance
	DefaultTolerance = 0.10

	// exactMatchPercent is the band around zero treated as the same price
	exactMatchPercent = 1.0

	epsilon = 1e-9
)

// Classify compares a receipt price with an online price (both in cents).
// It returns the status, the difference (receipt - online) and the
// difference as a percentage of the online price.
//
// The tolerance is applied symmetrically: a receipt price more than the
// tolerance below the online price is ReceiptLower, anything within the
// tolerance either way is WithinTolerance.
func Classify(receiptPrice, onlinePrice int64, tolerance float64) (Status, int64, float64) {
	if onlinePrice <= 0 {
		return StatusNotFound, 0, 0
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	diff := receiptPrice - onlinePrice
	percent := float64(diff) * 100 / float64(onlinePrice)
	tolPercent := tolerance * 100

	switch {
	case math.Abs(percent) <= exactMatchPercent+epsilon:
		return StatusExactMatch, diff, percent
	case math.Abs(percent) <= tolPercent+epsilon:
		return StatusWithinTolerance, diff, percent
	case percent < 0:
		return StatusReceiptLower, diff, percent
	case percent <= 2*tolPercent+epsilon:
		return StatusPossibleOvercharge, diff, percent
	default:
		return StatusSignificantOvercharge, diff, percent
	}
}
