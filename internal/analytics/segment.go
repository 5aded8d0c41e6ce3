package analytics

import (
	"math"
	"sort"

	"salespulse/backend/internal/domain"
)

// ClassifyQuadrants places each product of a slice into one of four classes
// relative to the slice's own average revenue and quantity. Thresholds are
// recomputed per slice: a product's quadrant is relative to its peers only.
func ClassifyQuadrants(stats []domain.ProductStat) domain.QuadrantBreakdown {
	var breakdown domain.QuadrantBreakdown
	if len(stats) == 0 {
		return breakdown
	}

	var revenueSum, quantitySum float64
	for _, s := range stats {
		revenueSum += s.Revenue
		quantitySum += float64(s.Quantity)
	}
	avgRevenue := revenueSum / float64(len(stats))
	avgQuantity := quantitySum / float64(len(stats))

	for _, s := range stats {
		highRevenue := s.Revenue >= avgRevenue
		highQuantity := float64(s.Quantity) >= avgQuantity
		switch {
		case highRevenue && highQuantity:
			breakdown.Stars = append(breakdown.Stars, s)
		case highRevenue:
			breakdown.CashCows = append(breakdown.CashCows, s)
		case highQuantity:
			breakdown.Horses = append(breakdown.Horses, s)
		default:
			breakdown.Dogs = append(breakdown.Dogs, s)
		}
	}

	for _, quadrant := range [][]domain.ProductStat{
		breakdown.Stars, breakdown.CashCows, breakdown.Horses, breakdown.Dogs,
	} {
		sort.SliceStable(quadrant, func(i, j int) bool { return quadrant[i].Revenue > quadrant[j].Revenue })
	}

	return breakdown
}

// SegmentCustomers builds profiles from the entire history, restricts to
// customers active in the window, and tags the active set. Segments are
// non-exclusive: one customer may carry several flags.
//
//   - IsNew: first-ever transaction falls inside the window.
//   - IsLoyal: more than 2 distinct bills inside the window.
//   - IsHighSpender: average spend per bill at or above the 80th percentile
//     of averages across all active customers.
func SegmentCustomers(history []domain.SalesRecord, window domain.PeriodWindow) domain.CustomerSegmentSummary {
	type accumulator struct {
		profile       domain.CustomerProfile
		bills         map[string]struct{}
		billsInWindow map[string]struct{}
	}

	byName := make(map[string]*accumulator)
	order := make([]string, 0, 64)

	for _, rec := range history {
		if rec.CustomerName == "" {
			continue
		}
		acc, ok := byName[rec.CustomerName]
		if !ok {
			acc = &accumulator{
				profile:       domain.CustomerProfile{Name: rec.CustomerName, FirstSeen: rec.Timestamp},
				bills:         make(map[string]struct{}),
				billsInWindow: make(map[string]struct{}),
			}
			byName[rec.CustomerName] = acc
			order = append(order, rec.CustomerName)
		}
		if rec.Timestamp.Before(acc.profile.FirstSeen) {
			acc.profile.FirstSeen = rec.Timestamp
		}
		acc.bills[rec.BillNumber] = struct{}{}
		acc.profile.TotalSpend += rec.NetRevenue
		if window.Contains(rec.Timestamp) {
			acc.billsInWindow[rec.BillNumber] = struct{}{}
			acc.profile.SpendInWindow += rec.NetRevenue
		}
	}

	active := make([]domain.CustomerProfile, 0, len(byName))
	for _, name := range order {
		acc := byName[name]
		if len(acc.billsInWindow) == 0 {
			continue
		}
		p := acc.profile
		p.TotalBills = len(acc.bills)
		p.BillsInWindow = len(acc.billsInWindow)
		p.AvgSpendPerBill = p.TotalSpend / float64(p.TotalBills)
		active = append(active, p)
	}

	threshold := highSpendThreshold(active)

	summary := domain.CustomerSegmentSummary{
		ActiveCustomers: len(active),
		Customers:       active,
	}
	for i := range active {
		p := &summary.Customers[i]
		p.IsNew = window.Contains(p.FirstSeen)
		p.IsLoyal = p.BillsInWindow > 2
		p.IsHighSpender = len(active) > 0 && p.AvgSpendPerBill >= threshold
		if p.IsNew {
			summary.NewCustomers++
		}
		if p.IsLoyal {
			summary.LoyalCustomers++
		}
		if p.IsHighSpender {
			summary.HighSpenders++
		}
	}

	sort.SliceStable(summary.Customers, func(i, j int) bool {
		return summary.Customers[i].TotalSpend > summary.Customers[j].TotalSpend
	})

	return summary
}

// highSpendThreshold is the 80th percentile of average spend per bill across
// the active set, using the same floor(p*len) index convention as the bill
// total percentiles.
func highSpendThreshold(active []domain.CustomerProfile) float64 {
	if len(active) == 0 {
		return 0
	}
	averages := make([]float64, 0, len(active))
	for _, p := range active {
		averages = append(averages, p.AvgSpendPerBill)
	}
	sort.Float64s(averages)
	idx := int(math.Floor(0.8 * float64(len(averages))))
	if idx >= len(averages) {
		idx = len(averages) - 1
	}
	return averages[idx]
}

// DetectPeakWindow finds the hour of day with the most distinct bills and
// reports the fixed 2-hour span starting there. This is deliberately not a
// sliding-window optimum; the span simply starts at the argmax hour.
func DetectPeakWindow(records []domain.SalesRecord) domain.PeakWindow {
	if len(records) == 0 {
		return domain.PeakWindow{}
	}

	billsByHour := make(map[int]map[string]struct{}, 24)
	for _, rec := range records {
		hour := rec.Timestamp.Hour()
		if billsByHour[hour] == nil {
			billsByHour[hour] = make(map[string]struct{})
		}
		billsByHour[hour][rec.BillNumber] = struct{}{}
	}

	peakHour, peakCount := 0, -1
	for hour := 0; hour < 24; hour++ {
		if count := len(billsByHour[hour]); count > peakCount {
			peakHour, peakCount = hour, count
		}
	}

	// Distinct bills across the 2-hour span; a bill spanning both hours
	// counts once.
	span := make(map[string]struct{})
	for bill := range billsByHour[peakHour] {
		span[bill] = struct{}{}
	}
	for bill := range billsByHour[(peakHour+1)%24] {
		span[bill] = struct{}{}
	}

	return domain.PeakWindow{
		StartHour:     peakHour,
		EndHour:       (peakHour + 2) % 24,
		DistinctBills: len(span),
	}
}

// SliceByWindow returns the records whose timestamps fall inside the window.
func SliceByWindow(records []domain.SalesRecord, window domain.PeriodWindow) []domain.SalesRecord {
	out := make([]domain.SalesRecord, 0, len(records))
	for _, rec := range records {
		if window.Contains(rec.Timestamp) {
			out = append(out, rec)
		}
	}
	return out
}
