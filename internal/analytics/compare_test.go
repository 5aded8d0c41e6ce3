package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"salespulse/backend/internal/domain"
)

func TestCompareZeroPreviousIsNotApplicable(t *testing.T) {
	for _, current := range []float64{0, 1, -1, 12345.6} {
		result := Compare(current, 0)
		assert.Equal(t, domain.DirectionNotApplicable, result.Direction)
		assert.Equal(t, "N/A", result.Percent)
		assert.Equal(t, "N/A", result.Sign)
		assert.Equal(t, "N/A", result.AbsoluteDifference)
	}
}

func TestCompareNonFiniteIsNotApplicable(t *testing.T) {
	assert.Equal(t, domain.DirectionNotApplicable, Compare(10, math.NaN()).Direction)
	assert.Equal(t, domain.DirectionNotApplicable, Compare(math.Inf(1), 10).Direction)
}

func TestCompareGrowth(t *testing.T) {
	result := Compare(100, 50)
	assert.Equal(t, domain.DirectionUp, result.Direction)
	assert.Equal(t, "100.0", result.Percent)
	assert.Equal(t, "+", result.Sign)
	assert.Equal(t, "50", result.AbsoluteDifference)
}

func TestCompareDecline(t *testing.T) {
	result := Compare(75, 100)
	assert.Equal(t, domain.DirectionDown, result.Direction)
	assert.Equal(t, "25.0", result.Percent)
	assert.Equal(t, "-", result.Sign)
	assert.Equal(t, "25", result.AbsoluteDifference)
}

func TestCompareEqualIsFlat(t *testing.T) {
	result := Compare(40, 40)
	assert.Equal(t, domain.DirectionFlat, result.Direction)
	assert.Equal(t, "0.0", result.Percent)
	assert.Equal(t, "", result.Sign)
	assert.Equal(t, "0", result.AbsoluteDifference)
}

func TestCompareRoundsToOneDecimal(t *testing.T) {
	result := Compare(101, 300)
	assert.Equal(t, "66.3", result.Percent)
}
