package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestScoreStoreRecordAndQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newScoreStoreWithExec(mock)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO scores").
		WithArgs(pgxmock.AnyArg(), "subject-1", MetricMood, 6.0, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.RecordScores(context.Background(), "subject-1", map[string]int{MetricMood: 6}, now); err != nil {
		t.Fatalf("record scores failed: %v", err)
	}

	mock.ExpectExec("INSERT INTO scores").
		WithArgs(pgxmock.AnyArg(), "subject-1", MetricAdherence, 42.5, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.RecordMetric(context.Background(), "subject-1", MetricAdherence, 42.5, now); err != nil {
		t.Fatalf("record metric failed: %v", err)
	}

	since := now.Add(-21 * 24 * time.Hour)
	rows := pgxmock.NewRows([]string{"metric", "value", "recorded_at"}).
		AddRow(MetricMood, 6.0, now).
		AddRow(MetricMood, 7.0, now.Add(-48*time.Hour)).
		AddRow(MetricAdherence, 42.5, now.Add(-24*time.Hour))
	mock.ExpectQuery("SELECT metric, value, recorded_at").
		WithArgs("subject-1", since).
		WillReturnRows(rows)

	series, err := store.SeriesSince(context.Background(), "subject-1", since)
	if err != nil {
		t.Fatalf("series since failed: %v", err)
	}
	if len(series[MetricMood]) != 2 {
		t.Fatalf("expected 2 mood points, got %d", len(series[MetricMood]))
	}
	if series[MetricMood][0].Value != 6.0 {
		t.Fatalf("expected newest mood first, got %v", series[MetricMood][0])
	}

	latestRows := pgxmock.NewRows([]string{"metric", "value"}).
		AddRow(MetricMood, 6.0).
		AddRow(MetricAdherence, 42.5)
	mock.ExpectQuery("SELECT DISTINCT ON").
		WithArgs("subject-1").
		WillReturnRows(latestRows)

	latest, err := store.LatestMetrics(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("latest metrics failed: %v", err)
	}
	if latest[MetricMood] != 6.0 || latest[MetricAdherence] != 42.5 {
		t.Fatalf("unexpected latest metrics: %#v", latest)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAlertStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newAlertStoreWithExec(mock)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	alert := Alert{
		ID:          uuid.New(),
		SubjectID:   "subject-1",
		Rule:        "medication_adherence_critical",
		Category:    CategoryAdherence,
		Severity:    SeverityCritical,
		Message:     "medication adherence averaged 35% over the last 3 reports",
		ActionItems: []string{"Call the patient about the missed doses"},
		Confidence:  0.95,
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO alerts").
		WithArgs(alert.ID, alert.SubjectID, alert.Rule, "adherence", "critical",
			alert.Message, alert.ActionItems, alert.Confidence, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.InsertAlert(context.Background(), alert); err != nil {
		t.Fatalf("insert alert failed: %v", err)
	}

	rows := pgxmock.NewRows([]string{"id", "subject_id", "rule", "category", "severity", "message", "action_items", "confidence", "created_at"}).
		AddRow(alert.ID, alert.SubjectID, alert.Rule, "adherence", "critical", alert.Message, alert.ActionItems, alert.Confidence, now)
	mock.ExpectQuery("SELECT id, subject_id, rule").
		WithArgs("subject-1").
		WillReturnRows(rows)

	alerts, err := store.ActiveAlerts(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("active alerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Severity != SeverityCritical {
		t.Fatalf("unexpected alerts: %#v", alerts)
	}
	if alerts[0].Category != CategoryAdherence || len(alerts[0].ActionItems) != 1 {
		t.Fatalf("category or action items not round-tripped: %#v", alerts[0])
	}

	mock.ExpectExec("UPDATE alerts").
		WithArgs(alert.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.Acknowledge(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if !ok {
		t.Fatal("expected acknowledge to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionStoreInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newSessionStoreWithExec(mock)
	report := SessionReport{
		SessionID:     uuid.New(),
		SubjectID:     "subject-1",
		RanAt:         time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		Status:        SessionCompleted,
		Alerts:        []Alert{{Rule: "engagement_lapsed"}},
		Interventions: []string{InterventionReEngagement},
	}

	mock.ExpectExec("INSERT INTO monitoring_sessions").
		WithArgs(report.SessionID, report.SubjectID, report.RanAt, "completed", 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.InsertSession(context.Background(), report); err != nil {
		t.Fatalf("insert session failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
