package coach

import (
	"context"
	"errors"
	"strings"
)

// llmDownMessage is the only text a provider failure may surface to the user.
const llmDownMessage = "I'm having trouble connecting to my core AI services right now. Please try again in a few minutes."

// PrimaryResponder makes the single general-model call for queries no
// specialized tool claimed. Temperature is tuned for varied but bounded
// output.
type PrimaryResponder struct {
	client      LLMClient
	model       string
	temperature float32
	maxTokens   int32
}

func NewPrimaryResponder(client LLMClient, model string, temperature float32) *PrimaryResponder {
	if client == nil {
		panic("coach: primary responder llm client cannot be nil")
	}
	if temperature < 0 {
		temperature = 0.7
	}
	return &PrimaryResponder{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   600,
	}
}

// Respond returns the model's reply text. Any transport or provider failure
// comes back as *LLMError carrying the user-safe message; callers present
// that, never the raw provider error.
func (r *PrimaryResponder) Respond(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: userPrompt}},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", &LLMError{UserMessage: llmDownMessage, Err: err}
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &LLMError{UserMessage: llmDownMessage, Err: errors.New("empty completion")}
	}
	return text, nil
}

// Model reports the configured model identifier for result metadata.
func (r *PrimaryResponder) Model() string {
	return r.model
}
