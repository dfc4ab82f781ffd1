package monitoring

import (
	"fmt"
	"time"
)

// Metric names the rules key on. Wellbeing metrics are patient self-scores on
// a 1-10 scale; adherence is reported by the care platform on a 0-100 scale.
const (
	MetricAdherence = "medication_adherence"
	MetricMood      = "mood"
	MetricEnergy    = "energy"
	MetricSleep     = "sleep"
	MetricNutrition = "nutrition"
	MetricStress    = "stress"
)

var wellbeingMetrics = []string{MetricMood, MetricEnergy, MetricSleep, MetricNutrition, MetricStress}

func isWellbeingMetric(name string) bool {
	for _, metric := range wellbeingMetrics {
		if metric == name {
			return true
		}
	}
	return false
}

const (
	adherenceCriticalBelow = 50.0
	adherenceSampleSize    = 3
	lowWellbeingAtOrBelow  = 4.0
	lowWellbeingMinCount   = 4
	engagementLapseAfter   = 7 * 24 * time.Hour
)

// Snapshot is the input to every rule: the subject's metric series over the
// lookback window, newest first, plus the evaluation time. Rules are pure
// functions of the snapshot so a run is reproducible.
type Snapshot struct {
	SubjectID string
	Series    map[string][]MetricPoint
	Now       time.Time
}

// Latest returns the most recent value for a metric.
func (s Snapshot) Latest(metric string) (float64, bool) {
	points := s.Series[metric]
	if len(points) == 0 {
		return 0, false
	}
	return points[0].Value, true
}

// RecentAverage averages the newest n points of a metric. ok is false when
// fewer than n points exist; a thin series must not trip an average rule.
func (s Snapshot) RecentAverage(metric string, n int) (float64, bool) {
	points := s.Series[metric]
	if len(points) < n {
		return 0, false
	}
	var sum float64
	for _, p := range points[:n] {
		sum += p.Value
	}
	return sum / float64(n), true
}

// Rule is one named check over a snapshot. Evaluate returns whether the rule
// fired and the alert message when it did. Cadence documents when the rule is
// meant to be scheduled; Actionable marks rules whose ActionItems the care
// team is expected to work through.
type Rule struct {
	Name        string
	Category    AlertCategory
	Severity    Severity
	Cadence     Cadence
	Actionable  bool
	Confidence  float64
	ActionItems []string
	Evaluate    func(Snapshot) (bool, string)
}

// DefaultRules is the production rule set, evaluated in order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "medication_adherence_critical",
			Category:   CategoryAdherence,
			Severity:   SeverityCritical,
			Cadence:    CadenceImmediate,
			Actionable: true,
			Confidence: 0.95,
			ActionItems: []string{
				"Call the patient about the missed doses",
				"Review adherence barriers with the prescriber",
			},
			Evaluate: func(s Snapshot) (bool, string) {
				avg, ok := s.RecentAverage(MetricAdherence, adherenceSampleSize)
				if !ok || avg >= adherenceCriticalBelow {
					return false, ""
				}
				return true, fmt.Sprintf("medication adherence averaged %.0f%% over the last %d reports", avg, adherenceSampleSize)
			},
		},
		{
			Name:       "low_wellbeing_pattern",
			Category:   CategoryIntervention,
			Severity:   SeverityHigh,
			Cadence:    CadenceDaily,
			Actionable: true,
			Confidence: 0.85,
			ActionItems: []string{
				"Schedule a wellbeing outreach call",
				"Review the latest check-in notes before calling",
			},
			Evaluate: func(s Snapshot) (bool, string) {
				low := 0
				for _, metric := range wellbeingMetrics {
					if value, ok := s.Latest(metric); ok && value <= lowWellbeingAtOrBelow {
						low++
					}
				}
				if low < lowWellbeingMinCount {
					return false, ""
				}
				return true, fmt.Sprintf("%d of %d wellbeing scores at or below %.0f", low, len(wellbeingMetrics), lowWellbeingAtOrBelow)
			},
		},
		{
			Name:       "engagement_lapsed",
			Category:   CategoryMilestone,
			Severity:   SeverityLow,
			Cadence:    CadenceWeekly,
			Actionable: true,
			Confidence: 0.9,
			ActionItems: []string{
				"Send a re-engagement nudge through the coaching channel",
			},
			Evaluate: func(s Snapshot) (bool, string) {
				var newest time.Time
				for _, points := range s.Series {
					if len(points) > 0 && points[0].RecordedAt.After(newest) {
						newest = points[0].RecordedAt
					}
				}
				if newest.IsZero() {
					return true, "no scores recorded in the lookback window"
				}
				if s.Now.Sub(newest) <= engagementLapseAfter {
					return false, ""
				}
				return true, fmt.Sprintf("last score recorded %s", newest.Format("2006-01-02"))
			},
		},
	}
}
