package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"salespulse/backend/internal/domain"
)

// Summarize computes the headline metrics for one window slice. Average per
// check resolves to 0 when the slice has no checks.
func Summarize(records []domain.SalesRecord, window domain.PeriodWindow) domain.PeriodSummary {
	summary := domain.PeriodSummary{Window: window, Records: len(records)}

	bills := make(map[string]struct{})
	for _, rec := range records {
		summary.Revenue += rec.NetRevenue
		summary.ItemsSold += rec.Quantity
		bills[rec.BillNumber] = struct{}{}
	}
	summary.TotalChecks = len(bills)
	if summary.TotalChecks > 0 {
		summary.AveragePerCheck = summary.Revenue / float64(summary.TotalChecks)
	}
	return summary
}

// breakdownBy groups records by an arbitrary categorical field and returns
// chart-ready entries sorted by revenue descending. One parameterized pass
// replaces the per-chart aggregation variants.
func breakdownBy(records []domain.SalesRecord, key func(domain.SalesRecord) string) []domain.BreakdownEntry {
	buckets := GroupByBucket(records, key)
	entries := make([]domain.BreakdownEntry, 0, len(buckets))
	for label, bucket := range buckets {
		entries = append(entries, domain.BreakdownEntry{
			Key:             label,
			Revenue:         bucket.Revenue,
			Quantity:        bucket.Quantity,
			UniqueChecks:    bucket.UniqueChecks(),
			AveragePerCheck: bucket.AveragePerCheck(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Revenue > entries[j].Revenue })
	return entries
}

// Analyze assembles the full results bag for a current window against a
// comparison window. It never fails on a valid record set: every ratio edge
// case resolves to a defined sentinel, never NaN or Infinity.
//
// The full record set is passed so customer profiles can be built from the
// entire history, not just the selected window.
func Analyze(records []domain.SalesRecord, current, comparison domain.PeriodWindow) domain.AnalysisResult {
	cur := SliceByWindow(records, current)
	prev := SliceByWindow(records, comparison)

	currentSummary := Summarize(cur, current)
	comparisonSummary := Summarize(prev, comparison)

	result := domain.AnalysisResult{
		Current:           currentSummary,
		Comparison:        comparisonSummary,
		RevenueComparison: Compare(currentSummary.Revenue, comparisonSummary.Revenue),
		ChecksComparison:  Compare(float64(currentSummary.TotalChecks), float64(comparisonSummary.TotalChecks)),
		APCComparison:     Compare(currentSummary.AveragePerCheck, comparisonSummary.AveragePerCheck),
		RevenueByDay:      Series(GroupByBucket(cur, DayBucket)),
		RevenueByWeek:     Series(GroupByBucket(cur, WeekBucket)),
		RevenueByMonth:    Series(GroupByBucket(cur, MonthBucket)),
		HourlyHistogram:   Series(GroupByBucket(cur, HourBucket)),
		PeakWindow:        DetectPeakWindow(cur),
		TypicalSpend: domain.SpendRange{
			Low:  PercentileOfBillTotals(cur, 0.25),
			High: PercentileOfBillTotals(cur, 0.75),
		},
		ByChannel:  breakdownBy(cur, func(r domain.SalesRecord) string { return r.Channel }),
		ByBranch:   breakdownBy(cur, func(r domain.SalesRecord) string { return r.Branch }),
		ByCategory: breakdownBy(cur, func(r domain.SalesRecord) string { return r.CategoryGroup }),
		Customers:  SegmentCustomers(records, current),
	}

	result.TopProducts = TopN(ProductStats(cur), 10, ByRevenue)

	result.QuadrantsByCategory = make(map[string]domain.QuadrantBreakdown)
	byCategory := make(map[string][]domain.SalesRecord)
	for _, rec := range cur {
		byCategory[rec.CategoryGroup] = append(byCategory[rec.CategoryGroup], rec)
	}
	for category, slice := range byCategory {
		result.QuadrantsByCategory[category] = ClassifyQuadrants(ProductStats(slice))
	}

	result.Metrics = flatMetrics(result)
	return result
}

// flatMetrics renders the display key/value map consumed by presentation.
func flatMetrics(r domain.AnalysisResult) map[string]string {
	return map[string]string{
		"revenue":            formatAmount(r.Current.Revenue),
		"revenue_growth":     formatGrowth(r.RevenueComparison),
		"total_checks":       strconv.Itoa(r.Current.TotalChecks),
		"checks_growth":      formatGrowth(r.ChecksComparison),
		"average_per_check":  formatAmount(r.Current.AveragePerCheck),
		"apc_growth":         formatGrowth(r.APCComparison),
		"items_sold":         strconv.Itoa(r.Current.ItemsSold),
		"typical_spend_low":  formatAmount(r.TypicalSpend.Low),
		"typical_spend_high": formatAmount(r.TypicalSpend.High),
		"peak_hours":         fmt.Sprintf("%02d:00-%02d:00", r.PeakWindow.StartHour, r.PeakWindow.EndHour),
		"active_customers":   strconv.Itoa(r.Customers.ActiveCustomers),
		"new_customers":      strconv.Itoa(r.Customers.NewCustomers),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatGrowth(c domain.ComparisonResult) string {
	if c.Direction == domain.DirectionNotApplicable {
		return notApplicable
	}
	return c.Sign + c.Percent + "%"
}
