package analytics

import (
	"math"
	"strconv"

	"salespulse/backend/internal/domain"
)

const notApplicable = "N/A"

// Compare computes period-over-period growth between two scalar metrics.
//
// A previous value of 0 (or anything non-finite) yields the NotApplicable
// sentinel with every display field set to "N/A"; callers must not do
// arithmetic on such a result. Equal values report Flat with a 0.0 percent.
func Compare(current, previous float64) domain.ComparisonResult {
	if previous == 0 || !isFinite(previous) || !isFinite(current) {
		return domain.ComparisonResult{
			Direction:          domain.DirectionNotApplicable,
			Percent:            notApplicable,
			Sign:               notApplicable,
			AbsoluteDifference: notApplicable,
		}
	}

	diff := current - previous
	percent := math.Abs(diff) / previous * 100

	direction := domain.DirectionDown
	sign := "-"
	switch {
	case current > previous:
		direction = domain.DirectionUp
		sign = "+"
	case current == previous:
		direction = domain.DirectionFlat
		sign = ""
	}

	return domain.ComparisonResult{
		Direction:          direction,
		Percent:            strconv.FormatFloat(percent, 'f', 1, 64),
		Sign:               sign,
		AbsoluteDifference: strconv.FormatFloat(math.Abs(diff), 'f', -1, 64),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
