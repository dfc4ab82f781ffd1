package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScoreSource struct {
	series map[string][]MetricPoint
	err    error
}

func (f *fakeScoreSource) SeriesSince(context.Context, string, time.Time) (map[string][]MetricPoint, error) {
	return f.series, f.err
}

type fakeAlertSink struct {
	alerts []Alert
	err    error
}

func (f *fakeAlertSink) InsertAlert(_ context.Context, alert Alert) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

type fakeSessionRecorder struct {
	reports []SessionReport
}

func (f *fakeSessionRecorder) InsertSession(_ context.Context, report SessionReport) error {
	f.reports = append(f.reports, report)
	return nil
}

type fakeNotifier struct {
	notified []Alert
	err      error
}

func (f *fakeNotifier) NotifyCritical(_ context.Context, alert Alert) error {
	f.notified = append(f.notified, alert)
	return f.err
}

type fakeEventPublisher struct {
	types []string
}

func (f *fakeEventPublisher) Publish(_ context.Context, eventType, _ string, _ any) error {
	f.types = append(f.types, eventType)
	return nil
}

type engineFixture struct {
	engine    *Engine
	source    *fakeScoreSource
	alerts    *fakeAlertSink
	sessions  *fakeSessionRecorder
	notifier  *fakeNotifier
	publisher *fakeEventPublisher
}

func newEngineFixture(now time.Time, series map[string][]MetricPoint) *engineFixture {
	fx := &engineFixture{
		source:    &fakeScoreSource{series: series},
		alerts:    &fakeAlertSink{},
		sessions:  &fakeSessionRecorder{},
		notifier:  &fakeNotifier{},
		publisher: &fakeEventPublisher{},
	}
	fx.engine = NewEngine(EngineConfig{
		Scores:    fx.source,
		Alerts:    fx.alerts,
		Sessions:  fx.sessions,
		Notifier:  fx.notifier,
		Publisher: fx.publisher,
	})
	fx.engine.now = func() time.Time { return now }
	return fx
}

func TestRunSessionCriticalAdherence(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{
		MetricAdherence: points(now, MetricAdherence, map[int]float64{1: 30, 3: 35, 5: 40}),
		MetricMood:      points(now, MetricMood, map[int]float64{1: 7, 8: 7, 15: 7}),
	}
	fx := newEngineFixture(now, series)

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "medication_adherence_critical", report.Alerts[0].Rule)
	assert.Equal(t, CategoryAdherence, report.Alerts[0].Category)
	assert.Equal(t, SeverityCritical, report.Alerts[0].Severity)
	assert.NotEmpty(t, report.Alerts[0].ActionItems)
	assert.Greater(t, report.Alerts[0].Confidence, 0.0)
	assert.Equal(t, []string{InterventionMedicationSupport}, report.Interventions)
	assert.Equal(t, SessionCompleted, report.Status)

	require.Len(t, fx.notifier.notified, 1)
	assert.Equal(t, "medication_adherence_critical", fx.notifier.notified[0].Rule)
	require.Len(t, fx.sessions.reports, 1)
	assert.Contains(t, fx.publisher.types, "monitoring.alert_raised.v1")
	assert.Contains(t, fx.publisher.types, "monitoring.session_completed.v1")
}

func TestRunSessionLowWellbeingPattern(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{}
	for _, metric := range []string{MetricMood, MetricEnergy, MetricSleep, MetricNutrition} {
		series[metric] = points(now, metric, map[int]float64{1: 3})
	}
	series[MetricStress] = points(now, MetricStress, map[int]float64{1: 8})
	fx := newEngineFixture(now, series)

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "low_wellbeing_pattern", report.Alerts[0].Rule)
	assert.Equal(t, CategoryIntervention, report.Alerts[0].Category)
	assert.Equal(t, []string{InterventionWellbeingOutreach}, report.Interventions)
	assert.Empty(t, fx.notifier.notified)
}

func TestRunSessionThreeDecliningTrends(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{}
	for _, metric := range []string{MetricMood, MetricEnergy, MetricSleep} {
		series[metric] = points(now, metric, map[int]float64{1: 7, 8: 8, 15: 9})
	}
	fx := newEngineFixture(now, series)

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	require.Len(t, report.Alerts, 3)
	for _, alert := range report.Alerts {
		assert.Equal(t, CategoryTrend, alert.Category)
		assert.Equal(t, SeverityMedium, alert.Severity)
		assert.Contains(t, alert.Rule, "declining_trend_")
	}
	assert.Equal(t, []string{InterventionPlanReview}, report.Interventions)
}

func TestRunSessionPreventiveCheckIn(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{
		MetricMood:  points(now, MetricMood, map[int]float64{1: 5, 8: 7, 15: 9}),
		MetricSleep: points(now, MetricSleep, map[int]float64{1: 7, 8: 7, 15: 7}),
	}
	fx := newEngineFixture(now, series)

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	assert.Equal(t, []string{InterventionPreventiveCheckIn}, report.Interventions)

	// The declining metric produces a trend alert and a predictive alert in
	// the same list.
	ruleNames := make([]string, 0, len(report.Alerts))
	categories := make([]AlertCategory, 0, len(report.Alerts))
	for _, alert := range report.Alerts {
		ruleNames = append(ruleNames, alert.Rule)
		categories = append(categories, alert.Category)
	}
	assert.Contains(t, ruleNames, "declining_trend_mood")
	assert.Contains(t, ruleNames, "predicted_low_wellbeing_mood")
	assert.Contains(t, categories, CategoryPredictive)
}

func TestRunSessionEmptyWindowFlagsEngagement(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	fx := newEngineFixture(now, map[string][]MetricPoint{})

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "engagement_lapsed", report.Alerts[0].Rule)
	assert.Equal(t, []string{InterventionReEngagement}, report.Interventions)
}

func TestRunSessionIsDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{
		MetricAdherence: points(now, MetricAdherence, map[int]float64{1: 20, 3: 25, 5: 30}),
		MetricMood:      points(now, MetricMood, map[int]float64{1: 3, 8: 5, 15: 7}),
		MetricEnergy:    points(now, MetricEnergy, map[int]float64{1: 3, 8: 5, 15: 7}),
		MetricSleep:     points(now, MetricSleep, map[int]float64{1: 3, 8: 5, 15: 7}),
		MetricNutrition: points(now, MetricNutrition, map[int]float64{1: 3, 8: 5, 15: 7}),
	}

	first, err := newEngineFixture(now, series).engine.RunSession(context.Background(), "subject-1")
	require.NoError(t, err)
	second, err := newEngineFixture(now, series).engine.RunSession(context.Background(), "subject-1")
	require.NoError(t, err)

	ruleNames := func(alerts []Alert) []string {
		names := make([]string, 0, len(alerts))
		for _, alert := range alerts {
			names = append(names, alert.Rule)
		}
		return names
	}
	assert.Equal(t, ruleNames(first.Alerts), ruleNames(second.Alerts))
	assert.Equal(t, first.Interventions, second.Interventions)
	assert.Equal(t, first.Trends, second.Trends)
}

func TestRunSessionStoreFailureAborts(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	fx := newEngineFixture(now, map[string][]MetricPoint{})
	fx.alerts.err = errors.New("db down")

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.Error(t, err)
	assert.Equal(t, SessionError, report.Status)
	assert.Empty(t, fx.sessions.reports)
}

func TestRunSessionNotifierFailureDoesNotAbort(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	series := map[string][]MetricPoint{
		MetricAdherence: points(now, MetricAdherence, map[int]float64{1: 10, 3: 10, 5: 10}),
	}
	fx := newEngineFixture(now, series)
	fx.notifier.err = errors.New("ses down")

	report, err := fx.engine.RunSession(context.Background(), "subject-1")

	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
}
