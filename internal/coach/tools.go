package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// ToolResult is a specialized responder's answer, taken instead of the
// general model's. ModelUsed is "none" when the text came from a canned
// fallback or the search provider rather than a model call.
type ToolResult struct {
	Text      string
	ToolsUsed []string
	ModelUsed string
}

// toolRoute pairs a match predicate with a responder. Routes are evaluated in
// table order and the first match wins, so priority changes are a table edit.
type toolRoute struct {
	name    string
	match   func(text string) bool
	respond func(ctx context.Context, bundle privacy.ContextBundle, text string) (string, string)
}

func keywordMatcher(keywords ...string) func(string) bool {
	return func(text string) bool {
		text = strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

// ToolRouter dispatches queries to specialized responders before the general
// model gets a chance. Location dispatch happens first and is gated on the
// classifier's explicit authorization; the keyword routes run in fixed
// priority order regardless of classified intent.
type ToolRouter struct {
	client        LLMClient
	model         string
	search        SearchProvider
	confidenceMin float64
	routes        []toolRoute
	logger        *logging.Logger
}

func NewToolRouter(client LLMClient, model string, search SearchProvider, confidenceMin float64, logger *logging.Logger) *ToolRouter {
	if client == nil {
		panic("coach: tool router llm client cannot be nil")
	}
	if confidenceMin <= 0 {
		confidenceMin = 0.7
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &ToolRouter{
		client:        client,
		model:         model,
		search:        search,
		confidenceMin: confidenceMin,
		logger:        logger,
	}
	r.routes = []toolRoute{
		{
			name:    "weekly_plan",
			match:   keywordMatcher("weekly plan", "plan for the week", "plan my week", "week ahead", "plan next week"),
			respond: r.weeklyPlan,
		},
		{
			name:    "wellness_program",
			match:   keywordMatcher("wellness program", "health program", "coaching program", "challenge"),
			respond: r.wellnessProgram,
		},
		{
			name:    "meal_inspiration",
			match:   keywordMatcher("meal", "recipe", "dinner", "lunch", "breakfast", "snack", "what to eat", "what should i eat"),
			respond: r.mealInspiration,
		},
		{
			name:    "activity_inspiration",
			match:   keywordMatcher("exercise", "workout", "activity", "stretch", "walk", "swim", "move more"),
			respond: r.activityInspiration,
		},
	}
	return r
}

// Route returns nil when no specialized responder claims the query, in which
// case the caller falls through to the primary responder. Location failures
// surface as *APIError so the supervisor can distinguish a configuration
// defect from a transient provider fault.
func (r *ToolRouter) Route(ctx context.Context, parsed ParsedQuery, rawText string, bundle privacy.ContextBundle) (*ToolResult, error) {
	if r.locationEligible(parsed) {
		return r.findLocation(ctx, parsed, rawText)
	}

	for _, route := range r.routes {
		if !route.match(rawText) {
			continue
		}
		r.logger.Debug("tool route matched", "tool", route.name)
		text, modelUsed := route.respond(ctx, bundle, rawText)
		return &ToolResult{
			Text:      text,
			ToolsUsed: []string{route.name},
			ModelUsed: modelUsed,
		}, nil
	}
	return nil, nil
}

func (r *ToolRouter) locationEligible(parsed ParsedQuery) bool {
	if parsed.Intent != IntentFindLocation {
		return false
	}
	if strings.TrimSpace(parsed.Entities["location"]) == "" {
		return false
	}
	return parsed.SafeForTooling && parsed.Confidence > r.confidenceMin
}

func (r *ToolRouter) findLocation(ctx context.Context, parsed ParsedQuery, rawText string) (*ToolResult, error) {
	tools := []string{"location_search"}

	// A missing provider key is a configuration defect: the location feature
	// is down, but the session stays alive with an honest message.
	if r.search == nil {
		return nil, &APIError{
			Service:       "location_search",
			Message:       "search provider key not configured",
			IsOperational: false,
		}
	}

	query := strings.TrimSpace(parsed.Entities["location"])
	if activity := strings.TrimSpace(parsed.Entities["activity"]); activity != "" {
		query = activity + " near " + query
	}

	places, err := r.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return &ToolResult{
			Text:      "I couldn't find anything matching that nearby. Could you try a different suburb or activity?",
			ToolsUsed: tools,
			ModelUsed: "none",
		}, nil
	}

	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	for i, place := range places {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", place.Name, place.Address)
	}
	b.WriteString("Always check opening hours before heading out.")
	return &ToolResult{Text: b.String(), ToolsUsed: tools, ModelUsed: "none"}, nil
}

const weeklyPlanPrompt = `You help a patient sketch a simple wellness plan for the coming week.
Keep it to 4-5 bullet points across diet, movement, and rest. Respect the care
plan directives exactly. No medical advice, no medication changes.`

func (r *ToolRouter) weeklyPlan(ctx context.Context, bundle privacy.ContextBundle, text string) (string, string) {
	return r.respondOrFallback(ctx, weeklyPlanPrompt, bundle, text, func() string {
		return fallbackWithDirectives(bundle,
			"Here's a simple structure for the week: pick three days for gentle movement, plan your main meals the night before, and keep a consistent bedtime.")
	})
}

const wellnessProgramPrompt = `You describe the patient's wellness program options in plain language.
Only reference coaching check-ins, self-score tracking, and goal setting.
Do not invent clinical services. No medical advice.`

func (r *ToolRouter) wellnessProgram(ctx context.Context, bundle privacy.ContextBundle, text string) (string, string) {
	return r.respondOrFallback(ctx, wellnessProgramPrompt, bundle, text, func() string {
		return fallbackWithDirectives(bundle,
			"Your program includes regular self-score check-ins, weekly goals, and chat support here whenever you need it.")
	})
}

const mealPrompt = `You suggest meal inspiration for a patient on a managed care plan.
Diet safety rules: stay aligned with the diet directive, avoid extreme or
restrictive diets, flag common allergens when relevant, and never give
medication or supplement advice.`

func (r *ToolRouter) mealInspiration(ctx context.Context, bundle privacy.ContextBundle, text string) (string, string) {
	return r.respondOrFallback(ctx, mealPrompt, bundle, text, func() string {
		return fallbackWithDirectives(bundle,
			"A reliable option: a palm-sized portion of lean protein, plenty of vegetables, and a wholegrain side. Keep water as the default drink.")
	})
}

const activityPrompt = `You suggest gentle activity ideas for a patient on a managed care plan.
Exercise safety rules: stay aligned with the exercise directive, favour
low-impact options, remind the patient to stop if anything hurts, and never
prescribe intensity beyond the directive.`

func (r *ToolRouter) activityInspiration(ctx context.Context, bundle privacy.ContextBundle, text string) (string, string) {
	return r.respondOrFallback(ctx, activityPrompt, bundle, text, func() string {
		return fallbackWithDirectives(bundle,
			"A short walk after meals is a great default. Ten minutes counts; consistency beats intensity.")
	})
}

// respondOrFallback tries the narrow-prompt model call and degrades to the
// route's deterministic fallback on any failure, so a model outage produces a
// still-useful canned answer rather than an error. The second return names
// the model that produced the text, "none" for the fallback.
func (r *ToolRouter) respondOrFallback(ctx context.Context, systemPrompt string, bundle privacy.ContextBundle, text string, fallback func() string) (string, string) {
	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{systemPrompt, BuildSystemPrompt(bundle)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: text}},
		MaxTokens:   400,
		Temperature: 0.6,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			r.logger.Warn("specialized responder degraded to canned fallback", "error", err)
		}
		return fallback(), "none"
	}
	return resp.Text, r.model
}

func fallbackWithDirectives(bundle privacy.ContextBundle, base string) string {
	if strings.TrimSpace(bundle.DirectiveSummary) == "" {
		return base
	}
	return base + " Your care plan guidance: " + bundle.DirectiveSummary + "."
}
