package analytics

import (
	"fmt"
	"math"
	"sort"

	"salespulse/backend/internal/domain"
)

// Bucket accumulates one time-grain cell: revenue plus the set of distinct
// bill numbers seen. Rebuilt per query, never persisted.
type Bucket struct {
	Revenue  float64
	Quantity int
	bills    map[string]struct{}
}

func (b *Bucket) UniqueChecks() int {
	return len(b.bills)
}

// AveragePerCheck is revenue / distinct checks, 0 when the bucket has no
// checks. Division by zero is a defined sentinel here, not an error.
func (b *Bucket) AveragePerCheck() float64 {
	if len(b.bills) == 0 {
		return 0
	}
	return b.Revenue / float64(len(b.bills))
}

// KeyFunc extracts a time-grain label from a record. Labels are chosen so
// lexicographic order equals chronological order.
type KeyFunc func(r domain.SalesRecord) string

func HourBucket(r domain.SalesRecord) string {
	return fmt.Sprintf("%02d", r.Timestamp.Hour())
}

func DayBucket(r domain.SalesRecord) string {
	return r.Timestamp.Format("2006-01-02")
}

// WeekBucket labels a record with the ISO week start (Monday) of its day.
func WeekBucket(r domain.SalesRecord) string {
	t := r.Timestamp
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}

func MonthBucket(r domain.SalesRecord) string {
	return r.Timestamp.Format("2006-01")
}

func YearBucket(r domain.SalesRecord) string {
	return r.Timestamp.Format("2006")
}

// GroupByBucket partitions records into buckets in a single O(n) pass. The
// partition preserves revenue: summing Revenue across buckets equals summing
// NetRevenue across records.
func GroupByBucket(records []domain.SalesRecord, key KeyFunc) map[string]*Bucket {
	buckets := make(map[string]*Bucket)
	for _, rec := range records {
		label := key(rec)
		bucket, ok := buckets[label]
		if !ok {
			bucket = &Bucket{bills: make(map[string]struct{})}
			buckets[label] = bucket
		}
		bucket.Revenue += rec.NetRevenue
		bucket.Quantity += rec.Quantity
		bucket.bills[rec.BillNumber] = struct{}{}
	}
	return buckets
}

// Series flattens buckets into a chart-ready slice sorted by label.
func Series(buckets map[string]*Bucket) []domain.SeriesPoint {
	points := make([]domain.SeriesPoint, 0, len(buckets))
	for label, bucket := range buckets {
		points = append(points, domain.SeriesPoint{
			Bucket:          label,
			Revenue:         bucket.Revenue,
			UniqueChecks:    bucket.UniqueChecks(),
			AveragePerCheck: bucket.AveragePerCheck(),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
	return points
}

// BillTotals folds line items into per-bill totals.
func BillTotals(records []domain.SalesRecord) map[string]float64 {
	totals := make(map[string]float64)
	for _, rec := range records {
		totals[rec.BillNumber] += rec.NetRevenue
	}
	return totals
}

// PercentileOfBillTotals sorts per-bill totals ascending and returns the
// value at index floor(p * len). Returns 0 on empty input. Percentiles are
// used instead of min/max so outlier checks do not distort the spend range.
func PercentileOfBillTotals(records []domain.SalesRecord, p float64) float64 {
	totals := BillTotals(records)
	if len(totals) == 0 {
		return 0
	}

	sorted := make([]float64, 0, len(totals))
	for _, total := range totals {
		sorted = append(sorted, total)
	}
	sort.Float64s(sorted)

	idx := int(math.Floor(p * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// ProductStats accumulates per-product revenue and quantity, preserving
// first-encountered order so that TopN ties resolve deterministically.
func ProductStats(records []domain.SalesRecord) []domain.ProductStat {
	index := make(map[string]int)
	stats := make([]domain.ProductStat, 0, 64)
	for _, rec := range records {
		i, ok := index[rec.ItemName]
		if !ok {
			i = len(stats)
			index[rec.ItemName] = i
			stats = append(stats, domain.ProductStat{Name: rec.ItemName})
		}
		stats[i].Revenue += rec.NetRevenue
		stats[i].Quantity += rec.Quantity
	}
	return stats
}

// TopN returns the n largest stats by the chosen field, descending. The sort
// is stable, so ties keep their first-encountered order.
func TopN(stats []domain.ProductStat, n int, by func(domain.ProductStat) float64) []domain.ProductStat {
	ranked := make([]domain.ProductStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool { return by(ranked[i]) > by(ranked[j]) })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func ByRevenue(s domain.ProductStat) float64 { return s.Revenue }

func ByQuantity(s domain.ProductStat) float64 { return float64(s.Quantity) }
