package milestones

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Milestone is an achievement awarded to a subject, at most once per name.
type Milestone struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awardedAt"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists engagement counters and awarded milestones.
type Store struct {
	pool querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("milestones: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithExec(exec querier) *Store {
	if exec == nil {
		panic("milestones: exec required")
	}
	return &Store{pool: exec}
}

// IncrementCounter bumps a named counter and returns the new value.
func (s *Store) IncrementCounter(ctx context.Context, subjectID, counter string) (int, error) {
	query := `
		INSERT INTO engagement_counters (subject_id, counter, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (subject_id, counter)
		DO UPDATE SET value = engagement_counters.value + 1
		RETURNING value
	`
	var value int
	if err := s.pool.QueryRow(ctx, query, subjectID, counter).Scan(&value); err != nil {
		return 0, fmt.Errorf("milestones: increment %s: %w", counter, err)
	}
	return value, nil
}

// Award grants a milestone, returning false if it was already held.
func (s *Store) Award(ctx context.Context, subjectID, name string) (bool, error) {
	query := `
		INSERT INTO milestones (id, subject_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id, name) DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, name)
	if err != nil {
		return false, fmt.Errorf("milestones: award %s: %w", name, err)
	}
	return ct.RowsAffected() > 0, nil
}

// List returns the subject's milestones, newest first.
func (s *Store) List(ctx context.Context, subjectID string) ([]Milestone, error) {
	query := `
		SELECT id, subject_id, name, awarded_at
		FROM milestones
		WHERE subject_id = $1
		ORDER BY awarded_at DESC
	`
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("milestones: query milestones: %w", err)
	}
	defer rows.Close()

	milestones := []Milestone{}
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Name, &m.AwardedAt); err != nil {
			return nil, fmt.Errorf("milestones: scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}
