package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
)

type fakeSource struct {
	metrics    map[string]float64
	directives []privacy.Directive
	history    []privacy.Turn
	err        error
}

func (f *fakeSource) SubjectContext(context.Context, string) (map[string]float64, []privacy.Directive, []privacy.Turn, error) {
	return f.metrics, f.directives, f.history, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
}

func newFakePublisher(expected int) *fakePublisher {
	return &fakePublisher{done: make(chan struct{}, expected)}
}

func (f *fakePublisher) Publish(_ context.Context, eventType, _ string, _ any) error {
	f.mu.Lock()
	f.events = append(f.events, eventType)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakePublisher) waitFor(t *testing.T, n int) []string {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeCooldown struct {
	allow bool
	err   error
	calls int
}

func (f *fakeCooldown) Acquire(context.Context, string) (bool, error) {
	f.calls++
	return f.allow, f.err
}

type supervisorFixture struct {
	supervisor *Supervisor
	llm        *fakeLLM
	publisher  *fakePublisher
	cooldown   *fakeCooldown
	source     *fakeSource
}

func newSupervisorFixture(t *testing.T, llm *fakeLLM) *supervisorFixture {
	t.Helper()
	source := &fakeSource{
		metrics:    map[string]float64{"mood": 6},
		directives: []privacy.Directive{{Category: "diet", Summary: "low sodium"}},
	}
	publisher := newFakePublisher(8)
	cooldown := &fakeCooldown{allow: true}

	sup := NewSupervisor(SupervisorConfig{
		Parser:     NewQueryParser(llm, "parse-model", nil),
		Router:     NewToolRouter(llm, "tool-model", nil, 0.7, nil),
		Responder:  NewPrimaryResponder(llm, "primary-model", 0.7),
		Validator:  NewResponseValidator(nil, "", nil),
		Source:     source,
		Publisher:  publisher,
		Cooldown:   cooldown,
		StaleAfter: 15 * time.Minute,
	})
	return &supervisorFixture{supervisor: sup, llm: llm, publisher: publisher, cooldown: cooldown, source: source}
}

func queryAt(sentAt time.Time) QueryRequest {
	return QueryRequest{
		SubjectID: "subject-1",
		SessionID: "session-1",
		Message:   IncomingMessage{Text: "how am I doing this week?", SentAt: sentAt},
	}
}

func TestHandleQueryStaleMessageSkipsAllModelCalls(t *testing.T) {
	fx := newSupervisorFixture(t, &fakeLLM{})

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now().Add(-16*time.Minute)))

	assert.Equal(t, staleReengagementMessage, result.Text)
	assert.Equal(t, "none", result.ModelUsed)
	assert.Equal(t, ValidationSkipped, result.ValidationStatus)
	assert.Equal(t, 0, fx.llm.callCount())
	assert.Equal(t, 0, fx.cooldown.calls)
}

func TestHandleQueryCooldownDenied(t *testing.T) {
	fx := newSupervisorFixture(t, &fakeLLM{})
	fx.cooldown.allow = false

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, cooldownMessage, result.Text)
	assert.Equal(t, 0, fx.llm.callCount())
}

func TestHandleQueryCooldownOutageFailsOpen(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"general_chat","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"You're doing well this week!",
	}}
	fx := newSupervisorFixture(t, llm)
	fx.cooldown.err = errors.New("redis down")

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, "You're doing well this week!", result.Text)
}

func TestHandleQueryHappyPathGeneralChat(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"general_chat","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"You're doing well this week!",
	}}
	fx := newSupervisorFixture(t, llm)

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, "You're doing well this week!", result.Text)
	assert.Equal(t, "session-1", result.SessionID)
	assert.Equal(t, "primary-model", result.ModelUsed)
	assert.Equal(t, ValidationSkipped, result.ValidationStatus)
	assert.Empty(t, result.ToolsUsed)
	assert.NotNil(t, result.ToolsUsed)

	events := fx.publisher.waitFor(t, 2)
	assert.Contains(t, events, "coach.message_processed.v1")
	assert.Contains(t, events, "coach.analytics.v1")
}

func TestHandleQueryGeneratesSessionID(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"general_chat","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"Hello!",
	}}
	fx := newSupervisorFixture(t, llm)
	req := queryAt(time.Now())
	req.SessionID = ""

	result := fx.supervisor.HandleQuery(context.Background(), req)

	assert.NotEmpty(t, result.SessionID)
}

func TestHandleQuerySecurityViolationBlocksBeforeModels(t *testing.T) {
	fx := newSupervisorFixture(t, &fakeLLM{})
	fx.source.metrics = map[string]float64{"contact jane.doe@example.com": 5}

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, securityViolationMessage, result.Text)
	assert.Equal(t, 0, fx.llm.callCount())
}

func TestHandleQueryContextOutageDegradesGracefully(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"general_chat","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"Happy to chat!",
	}}
	fx := newSupervisorFixture(t, llm)
	fx.source.err = errors.New("db down")

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, "Happy to chat!", result.Text)
}

func TestHandleQueryProviderOutageReturnsUserSafeMessage(t *testing.T) {
	fx := newSupervisorFixture(t, &fakeLLM{err: errors.New("bedrock unavailable")})

	result := fx.supervisor.HandleQuery(context.Background(), queryAt(time.Now()))

	assert.Equal(t, llmDownMessage, result.Text)
	assert.NotContains(t, result.Text, "bedrock")
}

func TestHandleQueryLocationMisconfiguration(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"find_location","entities":{"location":"near_me","activity":"swimming"},"safe_for_tooling":true,"confidence":0.95}`,
	}}
	fx := newSupervisorFixture(t, llm)
	req := queryAt(time.Now())
	req.Message.Text = "where can I swim near me?"

	result := fx.supervisor.HandleQuery(context.Background(), req)

	assert.Equal(t, locationConfigMessage, result.Text)
}

func TestHandleQueryLocationPlaceNameSurvivesToSearch(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"find_location","entities":{"location":"Gold Coast","activity":"swimming"},"safe_for_tooling":true,"confidence":0.95}`,
	}}
	search := &fakeSearch{places: []Place{{Name: "Aquatic Centre", Address: "1 Marine Pde"}}}
	sup := NewSupervisor(SupervisorConfig{
		Parser:    NewQueryParser(llm, "parse-model", nil),
		Router:    NewToolRouter(llm, "tool-model", search, 0.7, nil),
		Responder: NewPrimaryResponder(llm, "primary-model", 0.7),
		Validator: NewResponseValidator(nil, "", nil),
		Source:    &fakeSource{},
	})
	req := queryAt(time.Now())
	req.Message.Text = "where can i swim laps in Gold Coast"

	result := sup.HandleQuery(context.Background(), req)

	assert.Equal(t, []string{"location_search"}, result.ToolsUsed)
	assert.Contains(t, result.Text, "Aquatic Centre")
	assert.Equal(t, "swimming near Gold Coast", search.query)

	// The classifier must see the bare place name, not a redaction token.
	llm.mu.Lock()
	defer llm.mu.Unlock()
	require.NotEmpty(t, llm.requests)
	assert.Contains(t, llm.requests[0].Messages[0].Content, "Gold Coast")
}

func TestHandleQueryToolRouteUsedInsteadOfPrimary(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"health_inquiry","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"Try a veggie omelette with wholegrain toast.",
	}}
	fx := newSupervisorFixture(t, llm)
	req := queryAt(time.Now())
	req.Message.Text = "any meal ideas for breakfast?"

	result := fx.supervisor.HandleQuery(context.Background(), req)

	assert.Equal(t, []string{"meal_inspiration"}, result.ToolsUsed)
	assert.Equal(t, "Try a veggie omelette with wholegrain toast.", result.Text)
	assert.Equal(t, "tool-model", result.ModelUsed)
}

func TestHandleQueryRedactsInboundPII(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"intent":"general_chat","entities":{},"safe_for_tooling":false,"confidence":0.9}`,
		"Thanks for sharing!",
	}}
	fx := newSupervisorFixture(t, llm)
	req := queryAt(time.Now())
	req.Message.Text = "my email is jane.doe@example.com, how am I doing?"

	fx.supervisor.HandleQuery(context.Background(), req)

	require.GreaterOrEqual(t, fx.llm.callCount(), 2)
	fx.llm.mu.Lock()
	defer fx.llm.mu.Unlock()
	for _, req := range fx.llm.requests {
		for _, msg := range req.Messages {
			assert.NotContains(t, msg.Content, "jane.doe@example.com")
		}
	}
}
