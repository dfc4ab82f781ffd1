package coach

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
)

const coachPersonaPrompt = `You are a supportive health coach for a patient on a clinician-managed care plan.

Rules:
- Stay within the patient's care plan directives. Never contradict them.
- Do NOT diagnose conditions, name medications, or give dosing advice. For anything medical, suggest the patient speak with their care team.
- Do NOT claim abilities you lack: you cannot book appointments, track vital signs, or contact clinicians.
- Be warm, brief, and practical. One or two short paragraphs at most.`

// BuildSystemPrompt renders the persona plus the sanitized bundle context.
// Only bundle fields reach the prompt; the raw subject identifier never does.
func BuildSystemPrompt(bundle privacy.ContextBundle) string {
	var b strings.Builder
	b.WriteString(coachPersonaPrompt)
	b.WriteString("\n\nPatient context (pseudonymized):\n")
	fmt.Fprintf(&b, "- Patient: %s\n", bundle.SubjectPseudonym)
	if bundle.DirectiveSummary != "" {
		fmt.Fprintf(&b, "- Care plan directives: %s\n", bundle.DirectiveSummary)
	}
	if len(bundle.RecentMetrics) > 0 {
		keys := make([]string, 0, len(bundle.RecentMetrics))
		for key := range bundle.RecentMetrics {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%.1f", key, bundle.RecentMetrics[key]))
		}
		fmt.Fprintf(&b, "- Recent self-scores: %s\n", strings.Join(parts, ", "))
	}
	if len(bundle.RedactedHistory) > 0 {
		b.WriteString("- Recent conversation:\n")
		for _, turn := range bundle.RedactedHistory {
			fmt.Fprintf(&b, "  %s: %s\n", turn.Role, turn.Text)
		}
	}
	return b.String()
}
