package monitoring

import (
	"time"

	"github.com/google/uuid"
)

// MetricPoint is one recorded value for a metric. Scores arrive via the
// coaching check-in flow; adherence metrics come from the care platform.
type MetricPoint struct {
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Severity orders alerts for triage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertCategory groups alerts by the pass that produced them.
type AlertCategory string

const (
	CategoryAdherence    AlertCategory = "adherence"
	CategoryTrend        AlertCategory = "trend"
	CategoryMilestone    AlertCategory = "milestone"
	CategoryIntervention AlertCategory = "intervention"
	CategoryPredictive   AlertCategory = "predictive"
)

// Cadence documents the intended scheduling for a rule. The engine itself is
// cadence-agnostic and evaluates whatever window it is handed.
type Cadence string

const (
	CadenceImmediate Cadence = "immediate"
	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
)

// Alert is one finding persisted for the care team, whether from a rule, the
// trend pass, or the predictive pass. Active until acknowledged.
type Alert struct {
	ID             uuid.UUID     `json:"id"`
	SubjectID      string        `json:"subjectId"`
	Rule           string        `json:"rule"`
	Category       AlertCategory `json:"category"`
	Severity       Severity      `json:"severity"`
	Message        string        `json:"message"`
	ActionItems    []string      `json:"actionItems"`
	Confidence     float64       `json:"confidence"`
	CreatedAt      time.Time     `json:"createdAt"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
}

// TrendDirection classifies a metric's movement over the lookback window.
type TrendDirection string

const (
	TrendImproving    TrendDirection = "improving"
	TrendStable       TrendDirection = "stable"
	TrendDeclining    TrendDirection = "declining"
	TrendInsufficient TrendDirection = "insufficient_data"
)

// Trend is the fitted movement of one metric. Projected is the value the fit
// predicts seven days out, used by the preventive pass.
type Trend struct {
	Metric    string         `json:"metric"`
	Direction TrendDirection `json:"direction"`
	Slope     float64        `json:"slopePerDay"`
	Latest    float64        `json:"latest"`
	Projected float64        `json:"projected"`
}

// SessionStatus tracks a monitoring run's lifecycle.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
)

// SessionReport is the outcome of one monitoring run for one subject.
type SessionReport struct {
	SessionID     uuid.UUID     `json:"sessionId"`
	SubjectID     string        `json:"subjectId"`
	RanAt         time.Time     `json:"ranAt"`
	Status        SessionStatus `json:"status"`
	Alerts        []Alert       `json:"alerts"`
	Trends        []Trend       `json:"trends"`
	Interventions []string      `json:"interventions"`
}

// SessionRequest is the queue payload asking for a monitoring run.
type SessionRequest struct {
	SubjectID   string    `json:"subjectId"`
	RequestedAt time.Time `json:"requestedAt"`
}
