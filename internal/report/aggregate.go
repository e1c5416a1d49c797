// Package report computes dashboard and report statistics from dated
// transactions: period aggregation, grouped distributions, growth
// comparison and payload assembly. Every computation is a pure function of
// the store snapshot plus the requested range; nothing is cached.
package report

import (
	"sort"

	"grana/internal/core"
	"grana/internal/period"
)

// DashboardDistributionCap bounds distribution buckets on the dashboard.
// Report endpoints return all buckets uncapped.
const DashboardDistributionCap = 8

// Bucket is one grouped entry inside an aggregate.
type Bucket struct {
	Label      string `json:"label"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

// Aggregate is the flat summary of a transaction subset over a range.
type Aggregate struct {
	TotalCents int64 `json:"total_cents"`
	Count      int   `json:"count"`
}

// Sum totals the transactions whose date falls inside r. An empty or
// invalid range yields a zero aggregate, never an error.
func Sum(txs []core.Transaction, r period.Range) Aggregate {
	var agg Aggregate
	for _, tx := range txs {
		if !r.Contains(tx.Date) {
			continue
		}
		agg.TotalCents += tx.Amount.Cents
		agg.Count++
	}
	return agg
}

// groupBy buckets the in-range transactions under key, preserving
// first-seen order.
func groupBy(txs []core.Transaction, r period.Range, key func(core.Transaction) string) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket
	for _, tx := range txs {
		if !r.Contains(tx.Date) {
			continue
		}
		k := key(tx)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Label: k})
		}
		buckets[i].TotalCents += tx.Amount.Cents
		buckets[i].Count++
	}
	return buckets
}

// ByLabel groups by source/category name (missing labels coalesce to the
// sentinel bucket) and orders buckets by total descending. Ties keep
// first-seen order, which makes the output deterministic for equal totals.
func ByLabel(txs []core.Transaction, r period.Range) []Bucket {
	buckets := groupBy(txs, r, core.Transaction.Label)
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].TotalCents > buckets[j].TotalCents
	})
	return buckets
}

// DailySeries groups by calendar day in chronological order.
func DailySeries(txs []core.Transaction, r period.Range) []Bucket {
	buckets := groupBy(txs, r, func(tx core.Transaction) string { return tx.Date.String() })
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Label < buckets[j].Label })
	return buckets
}

// MonthlySeries groups by YYYY-MM in chronological order. The zero-padded
// label sorts lexicographically into calendar order.
func MonthlySeries(txs []core.Transaction, r period.Range) []Bucket {
	buckets := groupBy(txs, r, func(tx core.Transaction) string { return tx.Date.Format("2006-01") })
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Label < buckets[j].Label })
	return buckets
}

// Best returns the bucket with the highest total, or nil when there are no
// buckets. Ties resolve to the earliest bucket in the slice.
func Best(buckets []Bucket) *Bucket {
	if len(buckets) == 0 {
		return nil
	}
	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.TotalCents > best.TotalCents {
			best = b
		}
	}
	return &best
}

// TopN truncates an already-sorted distribution to its n largest entries.
func TopN(buckets []Bucket, n int) []Bucket {
	if len(buckets) <= n {
		return buckets
	}
	return buckets[:n]
}

// AvgPerDayCents divides a total over the range's calendar day count,
// rounding half away from zero to whole cents. A degenerate range yields 0.
func AvgPerDayCents(totalCents int64, r period.Range) int64 {
	return divRoundCents(totalCents, int64(r.Days()))
}

// AvgPerMonthCents divides an annual total by 12, regardless of how many
// months have elapsed.
func AvgPerMonthCents(totalCents int64) int64 {
	return divRoundCents(totalCents, 12)
}

func divRoundCents(total, n int64) int64 {
	if n <= 0 {
		return 0
	}
	neg := total < 0
	if neg {
		total = -total
	}
	q := (2*total + n) / (2 * n)
	if neg {
		return -q
	}
	return q
}
