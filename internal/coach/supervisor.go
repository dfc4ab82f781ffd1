package coach

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/internal/observability/metrics"
	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// User-facing messages for the paths that never reach a model. Every failure
// mode ends in one of these or a validator product; raw errors stop here.
const (
	staleReengagementMessage = "Thanks for your message! It looks like it was sent a while ago. How are you feeling right now? Is there anything I can help you with today?"

	cooldownMessage = "I'm still working on your last message. Give me just a moment and then ask again."

	securityViolationMessage = "I couldn't process that message safely. Please rephrase it without personal details like full names or contact information."

	locationConfigMessage = "Location search isn't available right now. I've let the team know. Is there something else I can help with?"

	locationRetryMessage = "I couldn't reach the location service just now. Please try again in a minute."

	genericErrorMessage = "Something went wrong on my end. Please try again shortly."
)

// ContextSource supplies everything the supervisor needs to know about a
// subject: recent self-score metrics, active care plan directives, and
// recent conversation turns (already role-tagged, raw text).
type ContextSource interface {
	SubjectContext(ctx context.Context, subjectID string) (map[string]float64, []privacy.Directive, []privacy.Turn, error)
}

// EventPublisher records side effects. Implementations must be durable
// (outbox) but the supervisor treats publication as fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subjectID string, payload any) error
}

// TurnRecorder persists the redacted exchange so future bundles carry recent
// conversation context.
type TurnRecorder interface {
	SaveExchange(ctx context.Context, subjectID, sessionID, userText, replyText string) error
}

// Supervisor runs the full message pipeline: staleness gate, cooldown,
// privacy bundle, classification, tool routing, primary response, and
// validation. HandleQuery always returns a presentable result; there is no
// error path that leaks provider internals to the patient.
type Supervisor struct {
	parser    *QueryParser
	router    *ToolRouter
	responder *PrimaryResponder
	validator *ResponseValidator
	source    ContextSource
	publisher EventPublisher
	turns     TurnRecorder
	cooldown  CooldownStore
	metrics   *metrics.Metrics
	logger    *logging.Logger

	staleAfter time.Duration

	now func() time.Time
}

type SupervisorConfig struct {
	Parser    *QueryParser
	Router    *ToolRouter
	Responder *PrimaryResponder
	Validator *ResponseValidator
	Source    ContextSource
	Publisher EventPublisher
	Turns     TurnRecorder
	Cooldown  CooldownStore
	Metrics   *metrics.Metrics
	Logger    *logging.Logger

	StaleAfter time.Duration
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Parser == nil || cfg.Router == nil || cfg.Responder == nil || cfg.Validator == nil {
		panic("coach: supervisor requires parser, router, responder, and validator")
	}
	if cfg.Source == nil {
		panic("coach: supervisor requires a context source")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	return &Supervisor{
		parser:     cfg.Parser,
		router:     cfg.Router,
		responder:  cfg.Responder,
		validator:  cfg.Validator,
		source:     cfg.Source,
		publisher:  cfg.Publisher,
		turns:      cfg.Turns,
		cooldown:   cfg.Cooldown,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		staleAfter: cfg.StaleAfter,
		now:        time.Now,
	}
}

// HandleQuery processes one patient message end to end.
func (s *Supervisor) HandleQuery(ctx context.Context, req QueryRequest) SupervisorResult {
	start := s.now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result := s.process(ctx, req, sessionID)
	result.SessionID = sessionID
	result.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	if result.ToolsUsed == nil {
		result.ToolsUsed = []string{}
	}

	s.metrics.ObserveCoachQuery(string(result.ValidationStatus), s.now().Sub(start))
	return result
}

func (s *Supervisor) process(ctx context.Context, req QueryRequest, sessionID string) SupervisorResult {
	// Staleness gate first: a message that sat in an offline queue past the
	// window gets a re-engagement nudge and costs zero model calls.
	if !req.Message.SentAt.IsZero() && s.now().Sub(req.Message.SentAt) > s.staleAfter {
		s.logger.Info("stale message, sending re-engagement",
			"session_id", sessionID, "sent_at", req.Message.SentAt)
		return SupervisorResult{
			Text:             staleReengagementMessage,
			ModelUsed:        "none",
			ValidationStatus: ValidationSkipped,
		}
	}

	if s.cooldown != nil {
		ok, err := s.cooldown.Acquire(ctx, sessionID)
		if err != nil {
			// Fail open: a cooldown store outage must not block conversation.
			s.logger.Warn("cooldown store unavailable, proceeding", "error", err)
		} else if !ok {
			return SupervisorResult{
				Text:             cooldownMessage,
				ModelUsed:        "none",
				ValidationStatus: ValidationSkipped,
			}
		}
	}

	subjectMetrics, directives, history, err := s.source.SubjectContext(ctx, req.SubjectID)
	if err != nil {
		// Degraded context beats no reply. The bundle still carries the
		// pseudonym, so the coach can answer generically.
		s.logger.Warn("subject context unavailable, answering without it",
			"error", err, "session_id", sessionID)
		subjectMetrics, directives, history = nil, nil, nil
	}

	// Two views of the message: routingText keeps a bare place name alive for
	// the classifier and the search provider when the query is location
	// seeking, redactedText is the fully scrubbed form for everything that
	// reaches the primary model or storage.
	redactedText := privacy.RedactText(req.Message.Text)
	routingText := privacy.RedactTextForRouting(req.Message.Text)
	bundle := privacy.BuildBundle(req.SubjectID, subjectMetrics, directives, history)

	if violations := privacy.ValidateBundle(bundle, req.Message.Text); len(violations) > 0 {
		return s.mapError(sessionID, &SecurityError{
			Reason:     "context bundle failed pre-flight scan",
			Violations: violations,
		})
	}

	parsed := s.parser.Parse(ctx, routingText)
	s.metrics.ObserveIntent(string(parsed.Intent))

	var (
		replyText string
		modelUsed string
		toolsUsed []string
	)

	toolResult, err := s.router.Route(ctx, parsed, routingText, bundle)
	if err != nil {
		return s.mapError(sessionID, err)
	}
	if toolResult != nil {
		replyText = toolResult.Text
		toolsUsed = toolResult.ToolsUsed
		modelUsed = toolResult.ModelUsed
		for _, tool := range toolsUsed {
			s.metrics.ObserveToolUse(tool)
		}
	} else {
		replyText, err = s.responder.Respond(ctx, BuildSystemPrompt(bundle), redactedText)
		if err != nil {
			return s.mapError(sessionID, err)
		}
		modelUsed = s.responder.Model()
	}

	outcome := s.validator.Validate(ctx, redactedText, replyText, req.RequiresValidation)
	s.metrics.ObserveValidation(string(outcome.Status))

	s.publishSideEffects(ctx, req, sessionID, redactedText, parsed, outcome, toolsUsed)

	return SupervisorResult{
		Text:             outcome.Text,
		ModelUsed:        modelUsed,
		ValidationStatus: outcome.Status,
		ToolsUsed:        toolsUsed,
	}
}

// publishSideEffects records the processed-message and analytics events
// without blocking the reply. Failures are logged and dropped; the patient
// already has their answer.
func (s *Supervisor) publishSideEffects(ctx context.Context, req QueryRequest, sessionID, redactedText string, parsed ParsedQuery, outcome ValidationOutcome, toolsUsed []string) {
	if s.publisher == nil && s.turns == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		if s.turns != nil {
			if err := s.turns.SaveExchange(detached, req.SubjectID, sessionID, redactedText, outcome.Text); err != nil {
				s.logger.Error("failed to record exchange", "error", err, "session_id", sessionID)
			}
		}
		if s.publisher == nil {
			return
		}
		payload := map[string]any{
			"session_id":        sessionID,
			"intent":            string(parsed.Intent),
			"confidence":        parsed.Confidence,
			"validation_status": string(outcome.Status),
			"tools_used":        toolsUsed,
			"processed_at":      s.now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.Publish(detached, events.TypeMessageProcessed, req.SubjectID, payload); err != nil {
			s.logger.Error("failed to publish message-processed event",
				"error", err, "session_id", sessionID)
		}
		if err := s.publisher.Publish(detached, events.TypeAnalytics, req.SubjectID, map[string]any{
			"session_id": sessionID,
			"intent":     string(parsed.Intent),
			"tool_count": len(toolsUsed),
		}); err != nil {
			s.logger.Error("failed to publish analytics event",
				"error", err, "session_id", sessionID)
		}
	}()
}

// mapError translates the internal error taxonomy into the user-safe message
// for each class. Anything unrecognized gets the generic message and a full
// log line for the operators.
func (s *Supervisor) mapError(sessionID string, err error) SupervisorResult {
	result := SupervisorResult{
		ModelUsed:        "none",
		ValidationStatus: ValidationSkipped,
	}

	var secErr *SecurityError
	var llmErr *LLMError
	var apiErr *APIError

	switch {
	case errors.As(err, &secErr):
		s.logger.Warn("security violation blocked request",
			"session_id", sessionID, "reason", secErr.Reason, "violations", secErr.Violations)
		s.metrics.ObserveSecurityViolation()
		result.Text = securityViolationMessage
	case errors.As(err, &llmErr):
		s.logger.Error("llm provider failure", "session_id", sessionID, "error", llmErr.Err)
		result.Text = llmErr.UserMessage
	case errors.As(err, &apiErr):
		if apiErr.IsOperational {
			s.logger.Warn("external service failure",
				"session_id", sessionID, "service", apiErr.Service, "error", err)
			result.Text = locationRetryMessage
		} else {
			s.logger.Error("external service misconfigured",
				"session_id", sessionID, "service", apiErr.Service, "message", apiErr.Message)
			result.Text = locationConfigMessage
		}
	default:
		s.logger.Error("unhandled supervisor error", "session_id", sessionID, "error", err)
		result.Text = genericErrorMessage
	}
	return result
}
