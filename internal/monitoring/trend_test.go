package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTrendDeclining(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	pts := points(now, MetricMood, map[int]float64{0: 6, 7: 7, 14: 8})

	trend := ComputeTrend(MetricMood, pts, now)

	assert.Equal(t, TrendDeclining, trend.Direction)
	assert.InDelta(t, -1.0/7.0, trend.Slope, 0.001)
	assert.InDelta(t, 6.0, trend.Latest, 0.001)
	assert.InDelta(t, 5.0, trend.Projected, 0.01)
}

func TestComputeTrendImproving(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	pts := points(now, MetricEnergy, map[int]float64{0: 8, 7: 6, 14: 4})

	trend := ComputeTrend(MetricEnergy, pts, now)

	assert.Equal(t, TrendImproving, trend.Direction)
	assert.Greater(t, trend.Slope, 0.0)
}

func TestComputeTrendStable(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	pts := points(now, MetricSleep, map[int]float64{0: 7, 7: 7, 14: 7})

	trend := ComputeTrend(MetricSleep, pts, now)

	assert.Equal(t, TrendStable, trend.Direction)
	assert.InDelta(t, 0, trend.Slope, 0.001)
}

func TestComputeTrendInsufficientData(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	trend := ComputeTrend(MetricMood, points(now, MetricMood, map[int]float64{0: 6, 7: 9}), now)
	assert.Equal(t, TrendInsufficient, trend.Direction)
	assert.InDelta(t, 6.0, trend.Latest, 0.001)

	trend = ComputeTrend(MetricMood, nil, now)
	assert.Equal(t, TrendInsufficient, trend.Direction)
}

func TestPredictsLowWellbeing(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// Steep decline from an acceptable level: projected to cross the line.
	steep := ComputeTrend(MetricMood, points(now, MetricMood, map[int]float64{0: 5, 7: 7, 14: 9}), now)
	assert.Equal(t, TrendDeclining, steep.Direction)
	assert.True(t, PredictsLowWellbeing(steep))

	// Gentle decline stays above the line within the horizon.
	gentle := ComputeTrend(MetricMood, points(now, MetricMood, map[int]float64{0: 8, 7: 8.5, 14: 9}), now)
	assert.Equal(t, TrendDeclining, gentle.Direction)
	assert.False(t, PredictsLowWellbeing(gentle))

	// Already low: the pattern rule owns this case, not the predictor.
	low := ComputeTrend(MetricMood, points(now, MetricMood, map[int]float64{0: 3, 7: 4, 14: 5}), now)
	assert.False(t, PredictsLowWellbeing(low))
}
