package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScoreStore persists subject metric points. It backs both the check-in flow
// (as the coach package's recorder) and the monitoring engine's score source.
type ScoreStore struct {
	pool querier
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	if pool == nil {
		panic("monitoring: pgx pool required")
	}
	return &ScoreStore{pool: pool}
}

func newScoreStoreWithExec(exec querier) *ScoreStore {
	if exec == nil {
		panic("monitoring: exec required")
	}
	return &ScoreStore{pool: exec}
}

// RecordScores inserts one check-in's worth of metric points.
func (s *ScoreStore) RecordScores(ctx context.Context, subjectID string, scores map[string]int, recordedAt time.Time) error {
	query := `
		INSERT INTO scores (id, subject_id, metric, value, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for metric, value := range scores {
		if _, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, metric, float64(value), recordedAt); err != nil {
			return fmt.Errorf("monitoring: insert score %s: %w", metric, err)
		}
	}
	return nil
}

// RecordMetric inserts a single platform-reported metric point, such as a
// medication adherence percentage.
func (s *ScoreStore) RecordMetric(ctx context.Context, subjectID, metric string, value float64, recordedAt time.Time) error {
	query := `
		INSERT INTO scores (id, subject_id, metric, value, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, metric, value, recordedAt); err != nil {
		return fmt.Errorf("monitoring: insert metric %s: %w", metric, err)
	}
	return nil
}

// SeriesSince returns the subject's points grouped by metric, newest first
// within each metric.
func (s *ScoreStore) SeriesSince(ctx context.Context, subjectID string, since time.Time) (map[string][]MetricPoint, error) {
	query := `
		SELECT metric, value, recorded_at
		FROM scores
		WHERE subject_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at DESC
	`
	rows, err := s.pool.Query(ctx, query, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("monitoring: query series: %w", err)
	}
	defer rows.Close()

	series := make(map[string][]MetricPoint)
	for rows.Next() {
		var point MetricPoint
		if err := rows.Scan(&point.Metric, &point.Value, &point.RecordedAt); err != nil {
			return nil, fmt.Errorf("monitoring: scan score: %w", err)
		}
		series[point.Metric] = append(series[point.Metric], point)
	}
	return series, rows.Err()
}

// LatestMetrics returns the most recent value per metric, for the coaching
// context bundle.
func (s *ScoreStore) LatestMetrics(ctx context.Context, subjectID string) (map[string]float64, error) {
	query := `
		SELECT DISTINCT ON (metric) metric, value
		FROM scores
		WHERE subject_id = $1
		ORDER BY metric, recorded_at DESC
	`
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("monitoring: query latest metrics: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]float64)
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("monitoring: scan latest metric: %w", err)
		}
		latest[metric] = value
	}
	return latest, rows.Err()
}

// AlertStore persists and serves alerts.
type AlertStore struct {
	pool querier
}

func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	if pool == nil {
		panic("monitoring: pgx pool required")
	}
	return &AlertStore{pool: pool}
}

func newAlertStoreWithExec(exec querier) *AlertStore {
	if exec == nil {
		panic("monitoring: exec required")
	}
	return &AlertStore{pool: exec}
}

func (s *AlertStore) InsertAlert(ctx context.Context, alert Alert) error {
	query := `
		INSERT INTO alerts (id, subject_id, rule, category, severity, message, action_items, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.pool.Exec(ctx, query,
		alert.ID, alert.SubjectID, alert.Rule, string(alert.Category), string(alert.Severity),
		alert.Message, alert.ActionItems, alert.Confidence, alert.CreatedAt); err != nil {
		return fmt.Errorf("monitoring: insert alert: %w", err)
	}
	return nil
}

// ActiveAlerts lists unacknowledged alerts, newest first.
func (s *AlertStore) ActiveAlerts(ctx context.Context, subjectID string) ([]Alert, error) {
	query := `
		SELECT id, subject_id, rule, category, severity, message, action_items, confidence, created_at
		FROM alerts
		WHERE subject_id = $1 AND acknowledged_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("monitoring: query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		var alert Alert
		var category, severity string
		if err := rows.Scan(&alert.ID, &alert.SubjectID, &alert.Rule, &category, &severity,
			&alert.Message, &alert.ActionItems, &alert.Confidence, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("monitoring: scan alert: %w", err)
		}
		alert.Category = AlertCategory(category)
		alert.Severity = Severity(severity)
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Acknowledge resolves an alert, returning false if it was already resolved
// or does not exist.
func (s *AlertStore) Acknowledge(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE alerts
		SET acknowledged_at = now()
		WHERE id = $1 AND acknowledged_at IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("monitoring: acknowledge alert: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// SessionStore persists session reports for auditability.
type SessionStore struct {
	pool querier
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	if pool == nil {
		panic("monitoring: pgx pool required")
	}
	return &SessionStore{pool: pool}
}

func newSessionStoreWithExec(exec querier) *SessionStore {
	if exec == nil {
		panic("monitoring: exec required")
	}
	return &SessionStore{pool: exec}
}

func (s *SessionStore) InsertSession(ctx context.Context, report SessionReport) error {
	query := `
		INSERT INTO monitoring_sessions (id, subject_id, ran_at, status, alert_count, interventions)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.pool.Exec(ctx, query,
		report.SessionID, report.SubjectID, report.RanAt, string(report.Status),
		len(report.Alerts), report.Interventions); err != nil {
		return fmt.Errorf("monitoring: insert session: %w", err)
	}
	return nil
}
