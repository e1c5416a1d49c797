// Package period resolves reference dates into inclusive calendar ranges.
// All dates are naive (UTC midnight, no timezone handling); callers keep a
// consistent representation and ranges compare by calendar day.
package period

import (
	"time"

	"grana/internal/core"
)

// Range is an inclusive [From, To] span of calendar days.
type Range struct {
	From core.Date
	To   core.Date
}

// Valid reports whether the range is well-formed. A reversed or zero range
// is not an error for the aggregation layer; it simply matches nothing.
func (r Range) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To.Time)
}

// Days returns the number of calendar days covered, 0 for invalid ranges.
func (r Range) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.To.Sub(r.From.Time)/(24*time.Hour)) + 1
}

// Contains reports whether d falls inside the range, bounds included.
func (r Range) Contains(d core.Date) bool {
	if !r.Valid() || d.IsZero() {
		return false
	}
	return !d.Before(r.From.Time) && !d.After(r.To.Time)
}

// Day is the single-day range for ref.
func Day(ref core.Date) Range {
	return Range{From: ref, To: ref}
}

// WeekToDate spans the Monday of ref's ISO week through ref.
func WeekToDate(ref core.Date) Range {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the ISO week
	}
	monday := core.Date{Time: ref.AddDate(0, 0, -(weekday - 1))}
	return Range{From: monday, To: ref}
}

// MonthToDate spans the first day of ref's month through ref.
func MonthToDate(ref core.Date) Range {
	return Range{From: core.NewDate(ref.Year(), int(ref.Month()), 1), To: ref}
}

// YearToDate spans January 1st of ref's year through ref.
func YearToDate(ref core.Date) Range {
	return Range{From: core.NewDate(ref.Year(), 1, 1), To: ref}
}

// FullMonth spans an entire calendar month, 1st through last day.
func FullMonth(year, month int) Range {
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, -1)}
	return Range{From: from, To: to}
}

// FullYear spans January 1st through December 31st.
func FullYear(year int) Range {
	return Range{From: core.NewDate(year, 1, 1), To: core.NewDate(year, 12, 31)}
}

// TrailingMonths spans from n calendar months before ref through ref.
func TrailingMonths(ref core.Date, n int) Range {
	return Range{From: core.Date{Time: ref.AddDate(0, -n, 0)}, To: ref}
}

// Custom builds a caller-provided range; validity is the caller's problem
// and an inverted range aggregates to zero downstream.
func Custom(from, to core.Date) Range {
	return Range{From: from, To: to}
}

// PrevMonth returns the calendar month before (year, month), rolling over
// year boundaries. Shifting by month, not by 30 days, keeps the prior range
// aligned with actual month lengths (March's prior is all of February).
func PrevMonth(year, month int) (int, int) {
	month--
	if month < 1 {
		month = 12
		year--
	}
	return year, month
}

// DaysInMonth returns the calendar length of a month (28, 29, 30 or 31).
func DaysInMonth(year, month int) int {
	return FullMonth(year, month).Days()
}
