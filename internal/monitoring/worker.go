package monitoring

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// Worker drains session requests from the queue and runs the engine.
type Worker struct {
	queue       queueClient
	engine      *Engine
	logger      *logging.Logger
	concurrency int
}

func NewWorker(queue queueClient, engine *Engine, concurrency int, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("monitoring: worker queue cannot be nil")
	}
	if engine == nil {
		panic("monitoring: worker engine cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{queue: queue, engine: engine, logger: logger, concurrency: concurrency}
}

// Run blocks until ctx is done, processing requests on the configured number
// of goroutines.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, 5, 10)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("monitoring queue receive failed", "error", err)
			continue
		}
		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queueMessage) {
	var req SessionRequest
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil || strings.TrimSpace(req.SubjectID) == "" {
		// Poison message: redelivery cannot fix it, drop it.
		w.logger.Error("discarding malformed session request", "message_id", msg.ID, "error", err)
		w.deleteMessage(ctx, msg)
		return
	}

	report, err := w.engine.RunSession(ctx, req.SubjectID)
	if err != nil {
		// Leave the message for redelivery.
		w.logger.Error("monitoring session failed", "error", err, "subject_id", req.SubjectID)
		return
	}
	w.logger.Info("monitoring session completed",
		"subject_id", req.SubjectID,
		"session_id", report.SessionID,
		"alerts", len(report.Alerts),
		"interventions", len(report.Interventions))
	w.deleteMessage(ctx, msg)
}

func (w *Worker) deleteMessage(ctx context.Context, msg queueMessage) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete queue message", "error", err, "message_id", msg.ID)
	}
}
