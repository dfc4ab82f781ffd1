package coach

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// sensitiveTopicKeywords gate the cross-model validation stage: only queries
// touching one of these trigger the second-model review.
var sensitiveTopicKeywords = []string{
	"medication", "medicine", "dose", "dosage", "prescription", "pill",
	"diagnos", "symptom", "side effect", "contraindication",
	"emergency", "chest pain", "can't breathe", "suicid", "self-harm", "overdose",
}

// forbiddenCapabilities are things the assistant must never claim to do. A
// single hit discards the reply wholesale; there is no partial edit.
var forbiddenCapabilities = []string{
	"schedule an appointment", "book an appointment", "booked you",
	"i've scheduled", "i can schedule", "reschedul",
	"prescription", "prescribe", "refill",
	"diagnos",
	"track your vital", "vital sign", "monitor your blood pressure", "monitor your heart",
	"contact your doctor for you", "call your clinic for you", "alert emergency services",
}

// safeFallbackReply substitutes a rejected cross-check result.
const safeFallbackReply = "That's an important question, and I want you to get accurate guidance. Please raise it with your care team directly; they know your situation best. I'm here for everyday coaching around your care plan in the meantime."

// availableFeaturesMessage replaces any reply that claims a capability the
// system does not have.
const availableFeaturesMessage = `Just to be clear about what I can help with:
- chatting about your care plan directives
- meal and wellness inspiration
- sketching a simple weekly plan
- finding nearby places to be active
- reviewing your self-scores and progress

For appointments, prescriptions, or anything clinical, your care team is the right place.`

const crossCheckPrompt = `You review a health coach's draft reply to a patient for safety.

Rubric - the reply must be:
- non-diagnostic: no conditions named, no medication or dosing advice
- aligned with the patient's care plan
- safe: no guidance that could cause harm if followed
- supportive in tone

Return ONLY JSON: {"verdict":"APPROVED|NEEDS_REVISION|REJECTED","reason":""}`

// ResponseValidator applies three sequential, independently skippable stages
// to model output: cross-model review, capability enforcement, and a final
// PII re-scan. Whatever happens inside, text leaving Validate never satisfies
// a PII detector and never names a forbidden capability.
type ResponseValidator struct {
	crossClient LLMClient // nil disables the cross-model stage
	crossModel  string
	logger      *logging.Logger
}

func NewResponseValidator(crossClient LLMClient, crossModel string, logger *logging.Logger) *ResponseValidator {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResponseValidator{
		crossClient: crossClient,
		crossModel:  crossModel,
		logger:      logger,
	}
}

// ValidationOutcome is the disposition of one reply.
type ValidationOutcome struct {
	Text   string
	Status ValidationStatus
}

// Validate runs the full gauntlet. userQuery decides whether the cross-model
// stage fires; forced requests it regardless of topic.
func (v *ResponseValidator) Validate(ctx context.Context, userQuery, replyText string, forced bool) ValidationOutcome {
	outcome := ValidationOutcome{Text: replyText, Status: ValidationSkipped}

	if v.crossClient != nil && (forced || TouchesSensitiveTopic(userQuery)) {
		outcome = v.crossCheck(ctx, userQuery, outcome)
	}

	outcome.Text = EnforceFeatureWhitelist(outcome.Text)

	// Models can echo PII patterns straight out of their input; re-scan the
	// output with the same ladder used on the way in.
	outcome.Text = privacy.RedactText(outcome.Text)

	return outcome
}

func (v *ResponseValidator) crossCheck(ctx context.Context, userQuery string, outcome ValidationOutcome) ValidationOutcome {
	prompt := "Patient message:\n" + userQuery + "\n\nDraft reply:\n" + outcome.Text
	resp, err := v.crossClient.Complete(ctx, LLMRequest{
		Model:       v.crossModel,
		System:      []string{crossCheckPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		// Stage is skippable: a reviewer outage must not take down the reply.
		v.logger.Warn("cross-model validation unavailable, skipping stage", "error", err)
		return outcome
	}

	var payload struct {
		Verdict string `json:"verdict"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(sanitizeModelJSON(resp.Text)), &payload); err != nil {
		v.logger.Warn("cross-model validation returned malformed verdict, skipping stage", "error", err)
		return outcome
	}

	switch strings.ToUpper(strings.TrimSpace(payload.Verdict)) {
	case "APPROVED":
		outcome.Status = ValidationApproved
	case "NEEDS_REVISION":
		// Pass the original through flagged. No automatic rewrite: letting
		// the reviewer edit the reply invites uncontrolled drift.
		outcome.Status = ValidationNeedsRevision
		v.logger.Info("reply flagged for revision", "reason", payload.Reason)
	case "REJECTED":
		outcome.Status = ValidationRejected
		outcome.Text = safeFallbackReply
		v.logger.Warn("reply rejected by cross-model validation", "reason", payload.Reason)
	default:
		v.logger.Warn("cross-model validation returned unknown verdict, skipping stage", "verdict", payload.Verdict)
	}
	return outcome
}

// TouchesSensitiveTopic reports whether the query needs the second-model pass.
func TouchesSensitiveTopic(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range sensitiveTopicKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// EnforceFeatureWhitelist discards any reply naming a capability the system
// does not have and substitutes the canned feature list. Hard override, never
// a partial edit.
func EnforceFeatureWhitelist(text string) string {
	lowered := strings.ToLower(text)
	for _, kw := range forbiddenCapabilities {
		if strings.Contains(lowered, kw) {
			return availableFeaturesMessage
		}
	}
	return text
}
