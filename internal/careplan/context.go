package careplan

import (
	"context"
	"fmt"

	"github.com/brightpath-health/coach-ai-platform/internal/privacy"
)

// MetricSource supplies the latest value per metric for a subject.
type MetricSource interface {
	LatestMetrics(ctx context.Context, subjectID string) (map[string]float64, error)
}

const historyTurns = 10

// ContextProvider assembles the supervisor's per-request view of a subject:
// latest metrics, active directives, and recent redacted conversation.
type ContextProvider struct {
	store   *Store
	metrics MetricSource
}

func NewContextProvider(store *Store, metrics MetricSource) *ContextProvider {
	if store == nil {
		panic("careplan: context provider store cannot be nil")
	}
	if metrics == nil {
		panic("careplan: context provider metric source cannot be nil")
	}
	return &ContextProvider{store: store, metrics: metrics}
}

func (p *ContextProvider) SubjectContext(ctx context.Context, subjectID string) (map[string]float64, []privacy.Directive, []privacy.Turn, error) {
	latest, err := p.metrics.LatestMetrics(ctx, subjectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("careplan: latest metrics: %w", err)
	}

	directives, err := p.store.ActiveDirectives(ctx, subjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	bundleDirectives := make([]privacy.Directive, 0, len(directives))
	for _, d := range directives {
		bundleDirectives = append(bundleDirectives, privacy.Directive{Category: d.Category, Summary: d.Summary})
	}

	turns, err := p.store.RecentTurns(ctx, subjectID, historyTurns)
	if err != nil {
		return nil, nil, nil, err
	}
	bundleTurns := make([]privacy.Turn, 0, len(turns))
	for _, turn := range turns {
		bundleTurns = append(bundleTurns, privacy.Turn{Role: turn.Role, Text: turn.Text})
	}

	return latest, bundleDirectives, bundleTurns, nil
}
