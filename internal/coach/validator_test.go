package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSkipsCrossCheckForBenignQuery(t *testing.T) {
	cross := &fakeLLM{responses: []string{`{"verdict":"REJECTED","reason":"should not be called"}`}}
	v := NewResponseValidator(cross, "cross-model", nil)

	outcome := v.Validate(context.Background(), "what's a good breakfast?", "Try oats with fruit.", false)

	assert.Equal(t, ValidationSkipped, outcome.Status)
	assert.Equal(t, "Try oats with fruit.", outcome.Text)
	assert.Equal(t, 0, cross.callCount())
}

func TestValidateForcedRunsCrossCheck(t *testing.T) {
	cross := &fakeLLM{responses: []string{`{"verdict":"APPROVED","reason":""}`}}
	v := NewResponseValidator(cross, "cross-model", nil)

	outcome := v.Validate(context.Background(), "what's a good breakfast?", "Try oats with fruit.", true)

	assert.Equal(t, ValidationApproved, outcome.Status)
	assert.Equal(t, 1, cross.callCount())
}

func TestValidateSensitiveTopicTriggersCrossCheck(t *testing.T) {
	cross := &fakeLLM{responses: []string{`{"verdict":"APPROVED","reason":""}`}}
	v := NewResponseValidator(cross, "cross-model", nil)

	outcome := v.Validate(context.Background(), "I missed my medication dose today", "Talk to your care team about missed doses.", false)

	assert.Equal(t, ValidationApproved, outcome.Status)
	assert.Equal(t, 1, cross.callCount())
}

func TestValidateRejectedSubstitutesSafeFallback(t *testing.T) {
	cross := &fakeLLM{responses: []string{`{"verdict":"REJECTED","reason":"dosing advice"}`}}
	v := NewResponseValidator(cross, "cross-model", nil)

	outcome := v.Validate(context.Background(), "can I double my dose?", "Sure, take two pills tomorrow.", false)

	assert.Equal(t, ValidationRejected, outcome.Status)
	assert.Equal(t, safeFallbackReply, outcome.Text)
}

func TestValidateNeedsRevisionPassesOriginalFlagged(t *testing.T) {
	cross := &fakeLLM{responses: []string{`{"verdict":"NEEDS_REVISION","reason":"tone"}`}}
	v := NewResponseValidator(cross, "cross-model", nil)

	original := "You should really try harder with your symptom tracking."
	outcome := v.Validate(context.Background(), "my symptoms are back", original, false)

	assert.Equal(t, ValidationNeedsRevision, outcome.Status)
	assert.Equal(t, original, outcome.Text)
}

func TestValidateCrossCheckOutageSkipsStage(t *testing.T) {
	cross := &fakeLLM{err: errors.New("reviewer down")}
	v := NewResponseValidator(cross, "cross-model", nil)

	outcome := v.Validate(context.Background(), "my medication ran out", "Please contact your care team for a resupply.", false)

	assert.Equal(t, ValidationSkipped, outcome.Status)
	assert.Equal(t, "Please contact your care team for a resupply.", outcome.Text)
}

func TestValidateNilCrossClientDisablesStage(t *testing.T) {
	v := NewResponseValidator(nil, "", nil)

	outcome := v.Validate(context.Background(), "my medication ran out", "Please contact your care team.", true)

	assert.Equal(t, ValidationSkipped, outcome.Status)
}

func TestValidateForbiddenCapabilityWholesaleSubstitution(t *testing.T) {
	v := NewResponseValidator(nil, "", nil)

	outcome := v.Validate(context.Background(), "can you help me?",
		"Of course! I've scheduled you in for Tuesday at 10am.", false)

	assert.Equal(t, availableFeaturesMessage, outcome.Text)
}

func TestValidateRedactsModelOutput(t *testing.T) {
	v := NewResponseValidator(nil, "", nil)

	outcome := v.Validate(context.Background(), "who do I email?",
		"You can reach the team at support@example.com anytime.", false)

	assert.NotContains(t, outcome.Text, "support@example.com")
	assert.Contains(t, outcome.Text, "[REDACTED_EMAIL]")
}

func TestTouchesSensitiveTopic(t *testing.T) {
	assert.True(t, TouchesSensitiveTopic("I think I missed a DOSE"))
	assert.True(t, TouchesSensitiveTopic("having chest pain right now"))
	assert.False(t, TouchesSensitiveTopic("what's a nice walk nearby?"))
}

func TestEnforceFeatureWhitelist(t *testing.T) {
	assert.Equal(t, availableFeaturesMessage, EnforceFeatureWhitelist("I can schedule an appointment for you"))
	assert.Equal(t, availableFeaturesMessage, EnforceFeatureWhitelist("Let me refill that prescription"))
	untouched := "A short walk after lunch sounds great."
	assert.Equal(t, untouched, EnforceFeatureWhitelist(untouched))
}
