package report

import "grana/internal/core"

// GrowthPercent compares a current total against the prior period's total
// and returns the growth percentage rounded to one decimal.
//
// A zero (or negative) prior yields 0 rather than an error or a sentinel:
// growth from nothing is reported as no growth. Callers depend on this
// exact policy; do not replace it with 100% or null semantics.
func GrowthPercent(current, prior int64) float64 {
	if prior <= 0 {
		return 0
	}
	return core.Round1(float64(current-prior) / float64(prior) * 100)
}
