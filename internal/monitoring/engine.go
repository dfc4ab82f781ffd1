package monitoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/internal/observability/metrics"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// ScoreSource loads a subject's metric series, newest first per metric.
type ScoreSource interface {
	SeriesSince(ctx context.Context, subjectID string, since time.Time) (map[string][]MetricPoint, error)
}

// AlertSink persists raised alerts.
type AlertSink interface {
	InsertAlert(ctx context.Context, alert Alert) error
}

// SessionRecorder persists completed session reports.
type SessionRecorder interface {
	InsertSession(ctx context.Context, report SessionReport) error
}

// Notifier escalates critical alerts to the care team out of band.
type Notifier interface {
	NotifyCritical(ctx context.Context, alert Alert) error
}

// EventPublisher records monitoring events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subjectID string, payload any) error
}

// Intervention identifiers, emitted in checklist order.
const (
	InterventionMedicationSupport = "immediate_medication_support"
	InterventionWellbeingOutreach = "wellbeing_outreach"
	InterventionPlanReview        = "holistic_plan_review"
	InterventionPreventiveCheckIn = "preventive_check_in"
	InterventionReEngagement      = "re_engagement_nudge"
)

// Engine runs rule-driven monitoring sessions. A session is deterministic for
// a given score series and clock: rules in fixed order, trends per sorted
// metric name, interventions from a fixed checklist.
type Engine struct {
	scores    ScoreSource
	alerts    AlertSink
	sessions  SessionRecorder
	notifier  Notifier
	publisher EventPublisher
	rules     []Rule
	lookback  time.Duration
	metrics   *metrics.Metrics
	logger    *logging.Logger

	now func() time.Time
}

type EngineConfig struct {
	Scores    ScoreSource
	Alerts    AlertSink
	Sessions  SessionRecorder
	Notifier  Notifier
	Publisher EventPublisher
	Rules     []Rule
	Lookback  time.Duration
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Scores == nil {
		panic("monitoring: engine requires a score source")
	}
	if cfg.Alerts == nil {
		panic("monitoring: engine requires an alert sink")
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 21 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		scores:    cfg.Scores,
		alerts:    cfg.Alerts,
		sessions:  cfg.Sessions,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		rules:     cfg.Rules,
		lookback:  cfg.Lookback,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// RunSession evaluates one subject now. Persistence failures abort the run;
// notification and event publication are best effort.
func (e *Engine) RunSession(ctx context.Context, subjectID string) (SessionReport, error) {
	now := e.clock()
	series, err := e.scores.SeriesSince(ctx, subjectID, now.Add(-e.lookback))
	if err != nil {
		return SessionReport{}, fmt.Errorf("monitoring: load series: %w", err)
	}

	snapshot := Snapshot{SubjectID: subjectID, Series: series, Now: now}
	report := SessionReport{
		SessionID:     uuid.New(),
		SubjectID:     subjectID,
		RanAt:         now,
		Status:        SessionActive,
		Alerts:        []Alert{},
		Trends:        e.computeTrends(series, now),
		Interventions: []string{},
	}

	for _, rule := range e.rules {
		fired, message := rule.Evaluate(snapshot)
		if !fired {
			continue
		}
		if err := e.raise(ctx, &report, Alert{
			ID:          uuid.New(),
			SubjectID:   subjectID,
			Rule:        rule.Name,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Message:     message,
			ActionItems: rule.ActionItems,
			Confidence:  rule.Confidence,
			CreatedAt:   now,
		}); err != nil {
			report.Status = SessionError
			return report, err
		}
	}

	if err := e.raiseTrendAlerts(ctx, &report, now); err != nil {
		report.Status = SessionError
		return report, err
	}

	report.Interventions = e.interventions(report)
	report.Status = SessionCompleted

	if e.sessions != nil {
		if err := e.sessions.InsertSession(ctx, report); err != nil {
			report.Status = SessionError
			return report, fmt.Errorf("monitoring: persist session: %w", err)
		}
	}

	e.escalate(ctx, report)
	e.publish(ctx, report)
	e.metrics.ObserveMonitoringSession(len(report.Alerts))
	return report, nil
}

// raise persists one alert and folds it into the report. Every pass (rules,
// trends, predictive) goes through here so alerts share one identifier scheme
// and one sink.
func (e *Engine) raise(ctx context.Context, report *SessionReport, alert Alert) error {
	if err := e.alerts.InsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("monitoring: persist alert %s: %w", alert.Rule, err)
	}
	report.Alerts = append(report.Alerts, alert)
	e.metrics.ObserveAlert(alert.Rule, string(alert.Severity))
	e.logger.Info("monitoring alert raised",
		"subject_id", alert.SubjectID, "rule", alert.Rule,
		"category", alert.Category, "severity", alert.Severity)
	return nil
}

// raiseTrendAlerts merges the trend and predictive passes into the alert
// list. Both are limited to wellbeing metrics; adherence already has its own
// dedicated rule.
func (e *Engine) raiseTrendAlerts(ctx context.Context, report *SessionReport, now time.Time) error {
	for _, trend := range report.Trends {
		if !isWellbeingMetric(trend.Metric) {
			continue
		}
		if trend.Direction == TrendDeclining {
			if err := e.raise(ctx, report, Alert{
				ID:        uuid.New(),
				SubjectID: report.SubjectID,
				Rule:      "declining_trend_" + trend.Metric,
				Category:  CategoryTrend,
				Severity:  SeverityMedium,
				Message:   fmt.Sprintf("%s has declined %.2f points per day over the lookback window", trend.Metric, -trend.Slope),
				ActionItems: []string{
					fmt.Sprintf("Review the %s series with the patient at the next check-in", trend.Metric),
				},
				Confidence: 0.7,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
		if PredictsLowWellbeing(trend) {
			if err := e.raise(ctx, report, Alert{
				ID:        uuid.New(),
				SubjectID: report.SubjectID,
				Rule:      "predicted_low_wellbeing_" + trend.Metric,
				Category:  CategoryPredictive,
				Severity:  SeverityMedium,
				Message:   fmt.Sprintf("%s is projected to reach %.1f within %d days", trend.Metric, trend.Projected, trendProjectionDays),
				ActionItems: []string{
					"Offer a preventive check-in before the projected dip",
				},
				Confidence: 0.6,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) computeTrends(series map[string][]MetricPoint, now time.Time) []Trend {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	trends := make([]Trend, 0, len(names))
	for _, name := range names {
		trends = append(trends, ComputeTrend(name, series[name], now))
	}
	return trends
}

// interventions walks the fixed checklist against the session's findings.
func (e *Engine) interventions(report SessionReport) []string {
	fired := make(map[string]bool, len(report.Alerts))
	for _, alert := range report.Alerts {
		fired[alert.Rule] = true
	}

	declining := 0
	preventive := false
	for _, trend := range report.Trends {
		if trend.Direction == TrendDeclining {
			declining++
		}
		if isWellbeingMetric(trend.Metric) && PredictsLowWellbeing(trend) {
			preventive = true
		}
	}

	out := []string{}
	if fired["medication_adherence_critical"] {
		out = append(out, InterventionMedicationSupport)
	}
	if fired["low_wellbeing_pattern"] {
		out = append(out, InterventionWellbeingOutreach)
	}
	if declining >= 3 {
		out = append(out, InterventionPlanReview)
	}
	if preventive {
		out = append(out, InterventionPreventiveCheckIn)
	}
	if fired["engagement_lapsed"] {
		out = append(out, InterventionReEngagement)
	}
	return out
}

func (e *Engine) escalate(ctx context.Context, report SessionReport) {
	if e.notifier == nil {
		return
	}
	for _, alert := range report.Alerts {
		if alert.Severity != SeverityCritical {
			continue
		}
		if err := e.notifier.NotifyCritical(ctx, alert); err != nil {
			e.logger.Error("failed to escalate critical alert",
				"error", err, "subject_id", alert.SubjectID, "rule", alert.Rule)
		}
	}
}

func (e *Engine) publish(ctx context.Context, report SessionReport) {
	if e.publisher == nil {
		return
	}
	for _, alert := range report.Alerts {
		if err := e.publisher.Publish(ctx, events.TypeAlertRaised, report.SubjectID, alert); err != nil {
			e.logger.Error("failed to publish alert event", "error", err, "rule", alert.Rule)
		}
	}
	if err := e.publisher.Publish(ctx, events.TypeSessionCompleted, report.SubjectID, map[string]any{
		"session_id":    report.SessionID,
		"alert_count":   len(report.Alerts),
		"interventions": report.Interventions,
	}); err != nil {
		e.logger.Error("failed to publish session event", "error", err)
	}
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}
