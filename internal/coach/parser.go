package coach

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

const parserPrompt = `Classify this message from a health-coaching patient. Respond with JSON only.

Intents:
- find_location: the patient wants a physical place (pool, park, gym, track)
- general_chat: greetings, small talk, open conversation
- ask_about_data: questions about their own logged scores or progress
- health_inquiry: questions about diet, exercise, medication, or wellbeing
- other: anything else

Also extract entities: for find_location include "location" (the place or area
named, or "near_me" if none) and "activity" when one is mentioned.

Set "safe_for_tooling" true only when the message is a clear, benign request
that an automated tool may act on without human review.

Message: %s

Respond with: {"intent":"<intent>","entities":{},"safe_for_tooling":false,"confidence":0.0}`

// fallbackParse keeps the conversation usable when the classifier degrades:
// a malformed model reply downgrades to cautious general chat, never an error.
var fallbackParse = ParsedQuery{
	Intent:         IntentGeneralChat,
	Entities:       map[string]string{},
	SafeForTooling: false,
	Confidence:     0.1,
}

// QueryParser turns free text into a ParsedQuery with a single structured
// output model call.
type QueryParser struct {
	client LLMClient
	model  string
	logger *logging.Logger
}

func NewQueryParser(client LLMClient, model string, logger *logging.Logger) *QueryParser {
	if client == nil {
		panic("coach: parser llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryParser{client: client, model: model, logger: logger}
}

// Parse classifies the message. It fails open: any provider or schema failure
// returns the conservative fallback rather than an error.
func (p *QueryParser) Parse(ctx context.Context, text string) ParsedQuery {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackParse
	}

	prompt := strings.Replace(parserPrompt, "%s", text, 1)
	resp, err := p.client.Complete(ctx, LLMRequest{
		Model:       p.model,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		p.logger.Warn("intent classification failed, falling back to general chat", "error", err)
		return fallbackParse
	}

	parsed, ok := decodeParsedQuery(resp.Text)
	if !ok {
		p.logger.Warn("intent classifier returned malformed output, falling back", "raw_len", len(resp.Text))
		return fallbackParse
	}
	return parsed
}

func decodeParsedQuery(raw string) (ParsedQuery, bool) {
	text := sanitizeModelJSON(raw)
	if text == "" {
		return ParsedQuery{}, false
	}

	var payload struct {
		Intent         string            `json:"intent"`
		Entities       map[string]string `json:"entities"`
		SafeForTooling bool              `json:"safe_for_tooling"`
		Confidence     float64           `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return ParsedQuery{}, false
	}

	intent := QueryIntent(strings.ToLower(strings.TrimSpace(payload.Intent)))
	if !ValidIntent(intent) {
		return ParsedQuery{}, false
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return ParsedQuery{}, false
	}
	if payload.Entities == nil {
		payload.Entities = map[string]string{}
	}

	return ParsedQuery{
		Intent:         intent,
		Entities:       payload.Entities,
		SafeForTooling: payload.SafeForTooling,
		Confidence:     payload.Confidence,
	}, true
}
