package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/backend/internal/domain"
)

func rec(bill string, ts time.Time, item string, qty int, revenue float64) domain.SalesRecord {
	return domain.SalesRecord{
		LineID:        fmt.Sprintf("line-%s-%s-%d", bill, item, ts.UnixNano()),
		BillNumber:    bill,
		Timestamp:     ts,
		Branch:        "Central",
		Channel:       "dine-in",
		CategoryGroup: "Food",
		ItemName:      item,
		Quantity:      qty,
		UnitPrice:     revenue / float64(max(qty, 1)),
		NetRevenue:    revenue,
	}
}

func at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 15, 0, 0, time.UTC)
}

func TestGroupByBucketPreservesRevenue(t *testing.T) {
	records := []domain.SalesRecord{
		rec("B1", at(1, 9), "Coffee", 1, 25000),
		rec("B1", at(1, 9), "Toast", 2, 30000),
		rec("B2", at(2, 12), "Coffee", 1, 25000),
		rec("B3", at(9, 19), "Refund", 0, -10000),
		rec("B4", at(15, 19), "Juice", 3, 45000),
	}

	var total float64
	for _, r := range records {
		total += r.NetRevenue
	}

	for name, key := range map[string]KeyFunc{
		"hour":  HourBucket,
		"day":   DayBucket,
		"week":  WeekBucket,
		"month": MonthBucket,
		"year":  YearBucket,
	} {
		buckets := GroupByBucket(records, key)
		var sum float64
		for _, b := range buckets {
			sum += b.Revenue
		}
		assert.InDelta(t, total, sum, 1e-9, "bucketing by %s must preserve revenue", name)
	}
}

func TestGroupByBucketCountsDistinctChecks(t *testing.T) {
	records := []domain.SalesRecord{
		rec("B1", at(1, 9), "Coffee", 1, 25000),
		rec("B1", at(1, 9), "Toast", 2, 30000),
		rec("B2", at(1, 9), "Coffee", 1, 25000),
	}

	buckets := GroupByBucket(records, DayBucket)
	require.Len(t, buckets, 1)

	day := buckets["2025-03-01"]
	require.NotNil(t, day)
	assert.Equal(t, 2, day.UniqueChecks())
	assert.InDelta(t, 80000.0/2, day.AveragePerCheck(), 1e-9)
}

func TestAveragePerCheckZeroWithoutChecks(t *testing.T) {
	empty := &Bucket{}
	assert.Equal(t, 0, empty.UniqueChecks())
	assert.Equal(t, 0.0, empty.AveragePerCheck())
}

func TestWeekBucketStartsOnMonday(t *testing.T) {
	// 2025-03-05 is a Wednesday; its ISO week starts Monday 2025-03-03.
	r := rec("B1", time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC), "Coffee", 1, 1)
	assert.Equal(t, "2025-03-03", WeekBucket(r))

	// A Monday maps to itself.
	r = rec("B2", time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC), "Coffee", 1, 1)
	assert.Equal(t, "2025-03-03", WeekBucket(r))

	// A Sunday belongs to the week that started six days earlier.
	r = rec("B3", time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC), "Coffee", 1, 1)
	assert.Equal(t, "2025-03-03", WeekBucket(r))
}

func TestPercentileOfBillTotals(t *testing.T) {
	assert.Equal(t, 0.0, PercentileOfBillTotals(nil, 0.25))

	records := []domain.SalesRecord{
		rec("B1", at(1, 9), "A", 1, 10),
		rec("B2", at(1, 9), "A", 1, 20),
		rec("B3", at(1, 9), "A", 1, 30),
		rec("B4", at(1, 9), "A", 1, 40),
	}
	// floor(0.25*4) = 1 -> second smallest total.
	assert.Equal(t, 20.0, PercentileOfBillTotals(records, 0.25))
	assert.Equal(t, 40.0, PercentileOfBillTotals(records, 0.75))
	// p = 1.0 clamps to the largest total instead of running off the end.
	assert.Equal(t, 40.0, PercentileOfBillTotals(records, 1.0))
}

func TestPercentileSumsLineItemsPerBill(t *testing.T) {
	records := []domain.SalesRecord{
		rec("B1", at(1, 9), "A", 1, 15),
		rec("B1", at(1, 9), "B", 1, 5),
		rec("B2", at(1, 9), "A", 1, 10),
	}
	// Bill totals are [10, 20]; floor(0.5*2)=1 -> 20.
	assert.Equal(t, 20.0, PercentileOfBillTotals(records, 0.5))
}

func TestTopNStableTieBreak(t *testing.T) {
	records := []domain.SalesRecord{
		rec("B1", at(1, 9), "First", 1, 100),
		rec("B2", at(1, 10), "Second", 1, 100),
		rec("B3", at(1, 11), "Third", 1, 50),
	}

	top := TopN(ProductStats(records), 2, ByRevenue)
	require.Len(t, top, 2)
	assert.Equal(t, "First", top[0].Name, "ties keep first-encountered order")
	assert.Equal(t, "Second", top[1].Name)
}

func TestTopNLargerThanSet(t *testing.T) {
	records := []domain.SalesRecord{rec("B1", at(1, 9), "Only", 1, 10)}
	top := TopN(ProductStats(records), 10, ByRevenue)
	assert.Len(t, top, 1)
}
