package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// SelfScoreSubmission is one check-in: each metric scored 1-10 by the patient.
type SelfScoreSubmission struct {
	SubjectID  string         `json:"subjectId"`
	Scores     map[string]int `json:"scores"`
	RecordedAt time.Time      `json:"recordedAt,omitempty"`
}

// SelfScoreAnalysis is what the patient sees after a check-in. The schema is
// a fixed contract; a reflection that does not validate against it is
// replaced by the degraded fallback, flagged via Degraded.
type SelfScoreAnalysis struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	TrendAnalysis   string   `json:"trendAnalysis"`
	IsImproving     bool     `json:"isImproving"`
	Degraded        bool     `json:"degraded"`
}

// ScoreRecorder persists validated check-ins for the monitoring engine.
type ScoreRecorder interface {
	RecordScores(ctx context.Context, subjectID string, scores map[string]int, recordedAt time.Time) error
}

const selfScorePrompt = `A patient on a coaching program just submitted their daily self-scores
(1 = very poor, 10 = excellent). Write a short, warm reflection.

Respond with JSON only:
{"summary":"one or two sentences reading the scores","recommendations":["one to three supportive, non-medical suggestions"],"trendAnalysis":"one sentence on the direction these scores suggest; if you cannot tell, say so","isImproving":true or false}

No medical advice. Do not mention medications or diagnoses.`

// degradedAnalysis is the fixed substitute when the model is unavailable or
// returns something unusable. Deterministic on purpose.
var degradedAnalysis = SelfScoreAnalysis{
	Summary:         "Sorry - I couldn't put together a full analysis right now, but your scores are recorded.",
	Recommendations: []string{"Keep logging your scores each day so your coach can spot trends."},
	TrendAnalysis:   "Not enough information to read a trend right now.",
	IsImproving:     false,
	Degraded:        true,
}

// SelfScoreAnalyzer validates and records a check-in, then asks the model for
// a reflection. Recording failures are errors; analysis failures are not.
type SelfScoreAnalyzer struct {
	client    LLMClient
	model     string
	recorder  ScoreRecorder
	publisher EventPublisher
	logger    *logging.Logger

	now func() time.Time
}

func NewSelfScoreAnalyzer(client LLMClient, model string, recorder ScoreRecorder, logger *logging.Logger) *SelfScoreAnalyzer {
	if client == nil {
		panic("coach: self-score analyzer llm client cannot be nil")
	}
	if recorder == nil {
		panic("coach: self-score analyzer recorder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SelfScoreAnalyzer{
		client:   client,
		model:    model,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPublisher enables check-in events for downstream consumers.
func (a *SelfScoreAnalyzer) WithPublisher(publisher EventPublisher) *SelfScoreAnalyzer {
	a.publisher = publisher
	return a
}

// Analyze validates, records, and reflects on one submission. Validation and
// persistence failures return errors; a model failure degrades to the fixed
// fallback with the scores already safely recorded.
func (a *SelfScoreAnalyzer) Analyze(ctx context.Context, sub SelfScoreSubmission) (SelfScoreAnalysis, error) {
	if strings.TrimSpace(sub.SubjectID) == "" {
		return SelfScoreAnalysis{}, &AppError{Message: "subjectId is required"}
	}
	if len(sub.Scores) == 0 {
		return SelfScoreAnalysis{}, &AppError{Message: "at least one score is required"}
	}
	for metric, value := range sub.Scores {
		if value < 1 || value > 10 {
			return SelfScoreAnalysis{}, &AppError{
				Message: fmt.Sprintf("score for %q must be between 1 and 10, got %d", metric, value),
			}
		}
	}

	recordedAt := sub.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = a.now().UTC()
	}
	if err := a.recorder.RecordScores(ctx, sub.SubjectID, sub.Scores, recordedAt); err != nil {
		return SelfScoreAnalysis{}, &AppError{Message: "failed to record scores", Err: err}
	}

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, events.TypeScoresRecorded, sub.SubjectID, map[string]any{
			"scores":      sub.Scores,
			"recorded_at": recordedAt.Format(time.RFC3339),
		}); err != nil {
			a.logger.Error("failed to publish scores-recorded event", "error", err)
		}
	}

	return a.reflect(ctx, sub.Scores), nil
}

func (a *SelfScoreAnalyzer) reflect(ctx context.Context, scores map[string]int) SelfScoreAnalysis {
	metrics := make([]string, 0, len(scores))
	for metric := range scores {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	var b strings.Builder
	b.WriteString("Today's scores:\n")
	for _, metric := range metrics {
		fmt.Fprintf(&b, "- %s: %d/10\n", metric, scores[metric])
	}

	resp, err := a.client.Complete(ctx, LLMRequest{
		Model:       a.model,
		System:      []string{selfScorePrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: b.String()}},
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil {
		a.logger.Warn("self-score reflection unavailable, using fallback", "error", err)
		return degradedAnalysis
	}

	analysis, ok := decodeAnalysis(resp.Text)
	if !ok {
		a.logger.Warn("self-score reflection malformed, using fallback", "raw_len", len(resp.Text))
		return degradedAnalysis
	}
	return analysis
}

// decodeAnalysis enforces the reflection schema strictly: non-empty summary
// and trend analysis, at least one non-empty recommendation, and an explicit
// isImproving boolean. Anything else is treated as malformed.
func decodeAnalysis(raw string) (SelfScoreAnalysis, bool) {
	text := sanitizeModelJSON(raw)
	if text == "" {
		return SelfScoreAnalysis{}, false
	}

	var payload struct {
		Summary         string   `json:"summary"`
		Recommendations []string `json:"recommendations"`
		TrendAnalysis   string   `json:"trendAnalysis"`
		IsImproving     *bool    `json:"isImproving"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return SelfScoreAnalysis{}, false
	}
	if strings.TrimSpace(payload.Summary) == "" || strings.TrimSpace(payload.TrendAnalysis) == "" {
		return SelfScoreAnalysis{}, false
	}
	if payload.IsImproving == nil {
		return SelfScoreAnalysis{}, false
	}

	recommendations := make([]string, 0, len(payload.Recommendations))
	for _, rec := range payload.Recommendations {
		if trimmed := strings.TrimSpace(rec); trimmed != "" {
			recommendations = append(recommendations, trimmed)
		}
	}
	if len(recommendations) == 0 {
		return SelfScoreAnalysis{}, false
	}

	return SelfScoreAnalysis{
		Summary:         strings.TrimSpace(payload.Summary),
		Recommendations: recommendations,
		TrendAnalysis:   strings.TrimSpace(payload.TrendAnalysis),
		IsImproving:     *payload.IsImproving,
	}, true
}
