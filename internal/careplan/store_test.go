package careplan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDirectives(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO directives").
		WithArgs(pgxmock.AnyArg(), "subject-1", CategoryDiet, "low sodium, plenty of vegetables").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.SetDirective(context.Background(), "subject-1", CategoryDiet, "low sodium, plenty of vegetables"))

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "subject_id", "category", "summary", "created_at"}).
		AddRow(uuid.New(), "subject-1", CategoryDiet, "low sodium, plenty of vegetables", now).
		AddRow(uuid.New(), "subject-1", CategoryExercise, "30 minutes walking daily", now)
	mock.ExpectQuery("SELECT id, subject_id, category").
		WithArgs("subject-1").
		WillReturnRows(rows)

	directives, err := store.ActiveDirectives(context.Background(), "subject-1")
	require.NoError(t, err)
	require.Len(t, directives, 2)
	assert.Equal(t, CategoryDiet, directives[0].Category)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreExchangeAndRecentTurns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(pgxmock.AnyArg(), "subject-1", "session-1", "user", "how am I doing?").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(pgxmock.AnyArg(), "subject-1", "session-1", "assistant", "You're doing well!").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.SaveExchange(context.Background(), "subject-1", "session-1", "how am I doing?", "You're doing well!"))

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"role", "text", "created_at"}).
		AddRow("assistant", "You're doing well!", now).
		AddRow("user", "how am I doing?", now.Add(-time.Second))
	mock.ExpectQuery("SELECT role, text, created_at").
		WithArgs("subject-1", 10).
		WillReturnRows(rows)

	turns, err := store.RecentTurns(context.Background(), "subject-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	// Chronological: user question first, reply second.
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)

	require.NoError(t, mock.ExpectationsWereMet())
}
