package monitoring

import "time"

// Thresholds for reading a least-squares slope on the 1-10 scales. Below the
// band the metric is declining, above it improving.
const (
	trendSlopeBand      = 0.05
	trendMinPoints      = 3
	trendProjectionDays = 7
)

// ComputeTrend fits a least-squares line through one metric's points (newest
// first) and classifies the direction. Fewer than trendMinPoints yields
// TrendInsufficient; trends must never fire off one or two readings.
func ComputeTrend(metric string, points []MetricPoint, now time.Time) Trend {
	trend := Trend{Metric: metric, Direction: TrendInsufficient}
	if len(points) == 0 {
		return trend
	}
	trend.Latest = points[0].Value
	if len(points) < trendMinPoints {
		return trend
	}

	// x is age in days relative to now, negated so time flows left to right.
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))
	for _, p := range points {
		x := -now.Sub(p.RecordedAt).Hours() / 24
		y := p.Value
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		trend.Direction = TrendStable
		trend.Projected = trend.Latest
		return trend
	}

	slope := (n*sumXY - sumX*sumY) / denom
	trend.Slope = slope
	trend.Projected = trend.Latest + slope*trendProjectionDays

	switch {
	case slope <= -trendSlopeBand:
		trend.Direction = TrendDeclining
	case slope >= trendSlopeBand:
		trend.Direction = TrendImproving
	default:
		trend.Direction = TrendStable
	}
	return trend
}

// PredictsLowWellbeing reports whether a currently acceptable wellbeing
// metric is projected to cross the low threshold within the projection
// horizon. This is the preventive arm: catch the slide before the rule fires.
func PredictsLowWellbeing(trend Trend) bool {
	if trend.Direction != TrendDeclining {
		return false
	}
	return trend.Latest > lowWellbeingAtOrBelow && trend.Projected <= lowWellbeingAtOrBelow
}
