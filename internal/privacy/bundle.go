package privacy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Turn is a single redacted exchange in the bundle's history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Directive is a clinician-authored care plan directive (CPD) in one of the
// fixed categories (diet, exercise, medication).
type Directive struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// ContextBundle is the privacy-sanitized snapshot of a subject's context
// assembled per request for model consumption. Request-scoped: built fresh
// per message, never persisted, never shared across requests.
type ContextBundle struct {
	SubjectPseudonym string             `json:"subject_pseudonym"`
	DirectiveSummary string             `json:"directive_summary"`
	RecentMetrics    map[string]float64 `json:"recent_metrics"`
	RedactedHistory  []Turn             `json:"redacted_history"`
}

// BuildBundle assembles a sanitized context bundle. Every free-text input is
// pushed through the detection ladder and the subject identifier is replaced
// with its pseudonym before anything reaches a model.
func BuildBundle(subjectID string, metrics map[string]float64, directives []Directive, history []Turn) ContextBundle {
	summary := make([]string, 0, len(directives))
	for _, d := range directives {
		text := strings.TrimSpace(RedactText(d.Summary))
		if text == "" {
			continue
		}
		summary = append(summary, fmt.Sprintf("%s: %s", d.Category, text))
	}

	redacted := make([]Turn, 0, len(history))
	for _, turn := range history {
		redacted = append(redacted, Turn{
			Role: turn.Role,
			Text: RedactText(turn.Text),
		})
	}

	sanitizedMetrics := make(map[string]float64, len(metrics))
	for key, value := range metrics {
		sanitizedMetrics[key] = value
	}

	return ContextBundle{
		SubjectPseudonym: Pseudonym(subjectID),
		DirectiveSummary: strings.Join(summary, "; "),
		RecentMetrics:    sanitizedMetrics,
		RedactedHistory:  redacted,
	}
}

// ValidateBundle scans the serialized bundle with the same detector ladder
// used to build it and returns the categories that still leak. The name
// pattern is exempt when the originating query is location-seeking: a bare
// place name must not be misread as a leaked person name.
func ValidateBundle(bundle ContextBundle, originalQuery string) []string {
	serialized, err := json.Marshal(bundle)
	if err != nil {
		// Marshal of a plain struct only fails on corrupted values; treat as
		// a leak so the caller refuses to proceed.
		return []string{"serialization"}
	}

	violations := Scan(string(serialized))
	if len(violations) == 0 {
		return nil
	}
	if !IsLocationQuery(originalQuery) {
		return violations
	}

	filtered := violations[:0]
	for _, category := range violations {
		if category == CategoryName {
			continue
		}
		filtered = append(filtered, category)
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
