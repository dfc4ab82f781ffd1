package milestones

import (
	"context"
	"fmt"

	"github.com/brightpath-health/coach-ai-platform/internal/events"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

const consumerName = "milestones"

// Counters and the milestones their thresholds award.
const (
	counterConversations = "conversations"
	counterCheckIns      = "check_ins"
)

var conversationThresholds = map[int]string{
	1:  "first_conversation",
	10: "ten_conversations",
	50: "fifty_conversations",
}

var checkInThresholds = map[int]string{
	1:  "first_check_in",
	7:  "week_of_check_ins",
	30: "month_of_check_ins",
}

// Dedupe guards against outbox redelivery.
type Dedupe interface {
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// Recorder is the slice of Store the consumer needs.
type Recorder interface {
	IncrementCounter(ctx context.Context, subjectID, counter string) (int, error)
	Award(ctx context.Context, subjectID, name string) (bool, error)
}

// Consumer awards engagement milestones from coaching events. Implements the
// outbox delivery contract.
type Consumer struct {
	store  Recorder
	dedupe Dedupe
	logger *logging.Logger
}

func NewConsumer(store Recorder, dedupe Dedupe, logger *logging.Logger) *Consumer {
	if store == nil {
		panic("milestones: consumer store cannot be nil")
	}
	if dedupe == nil {
		panic("milestones: consumer dedupe cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{store: store, dedupe: dedupe, logger: logger}
}

// Handle processes one outbox entry. Unknown event types are acknowledged
// without action so the outbox drains.
func (c *Consumer) Handle(ctx context.Context, entry events.OutboxEntry) error {
	fresh, err := c.dedupe.MarkProcessed(ctx, consumerName, entry.ID.String())
	if err != nil {
		return fmt.Errorf("milestones: dedupe: %w", err)
	}
	if !fresh {
		c.logger.Debug("skipping already-processed event", "event_id", entry.ID)
		return nil
	}

	switch entry.Type {
	case events.TypeMessageProcessed:
		return c.bump(ctx, entry.SubjectID, counterConversations, conversationThresholds)
	case events.TypeScoresRecorded:
		return c.bump(ctx, entry.SubjectID, counterCheckIns, checkInThresholds)
	default:
		return nil
	}
}

func (c *Consumer) bump(ctx context.Context, subjectID, counter string, thresholds map[int]string) error {
	value, err := c.store.IncrementCounter(ctx, subjectID, counter)
	if err != nil {
		return err
	}
	name, ok := thresholds[value]
	if !ok {
		return nil
	}
	awarded, err := c.store.Award(ctx, subjectID, name)
	if err != nil {
		return err
	}
	if awarded {
		c.logger.Info("milestone awarded", "subject_id", subjectID, "milestone", name)
	}
	return nil
}
