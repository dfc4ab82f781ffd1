package careplan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Directive categories are fixed by the clinical workflow.
const (
	CategoryDiet       = "diet"
	CategoryExercise   = "exercise"
	CategoryMedication = "medication"
)

// Directive is a clinician-authored care plan instruction.
type Directive struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn is one stored conversation message, already redacted on write.
type Turn struct {
	Role      string
	Text      string
	CreatedAt time.Time
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists care plan directives and conversation history.
type Store struct {
	pool querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("careplan: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithExec(exec querier) *Store {
	if exec == nil {
		panic("careplan: exec required")
	}
	return &Store{pool: exec}
}

// SetDirective replaces the subject's directive for a category.
func (s *Store) SetDirective(ctx context.Context, subjectID, category, summary string) error {
	query := `
		INSERT INTO directives (id, subject_id, category, summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject_id, category)
		DO UPDATE SET summary = EXCLUDED.summary, created_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, category, summary); err != nil {
		return fmt.Errorf("careplan: set directive: %w", err)
	}
	return nil
}

// ActiveDirectives lists the subject's directives in category order.
func (s *Store) ActiveDirectives(ctx context.Context, subjectID string) ([]Directive, error) {
	query := `
		SELECT id, subject_id, category, summary, created_at
		FROM directives
		WHERE subject_id = $1
		ORDER BY category
	`
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("careplan: query directives: %w", err)
	}
	defer rows.Close()

	var directives []Directive
	for rows.Next() {
		var d Directive
		if err := rows.Scan(&d.ID, &d.SubjectID, &d.Category, &d.Summary, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("careplan: scan directive: %w", err)
		}
		directives = append(directives, d)
	}
	return directives, rows.Err()
}

// SaveExchange stores one user/assistant turn pair. Callers pass redacted
// text; this store never sees raw message content.
func (s *Store) SaveExchange(ctx context.Context, subjectID, sessionID, userText, replyText string) error {
	query := `
		INSERT INTO conversation_turns (id, subject_id, session_id, role, text)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, sessionID, "user", userText); err != nil {
		return fmt.Errorf("careplan: save user turn: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, uuid.New(), subjectID, sessionID, "assistant", replyText); err != nil {
		return fmt.Errorf("careplan: save assistant turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns in chronological order.
func (s *Store) RecentTurns(ctx context.Context, subjectID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT role, text, created_at
		FROM conversation_turns
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("careplan: query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Role, &turn.Text, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("careplan: scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; bundles read oldest to newest.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
