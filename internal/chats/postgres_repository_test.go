package chats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresListChats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM chats").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT .* FROM chats c ORDER BY c.updated_at DESC").
		WithArgs(0, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "summary", "created_at", "updated_at", "count"}).
			AddRow(uuid.New(), "Planning", "", now, now, 4))

	result, err := repo.List(context.Background(), Page{})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Total)
	require.Len(t, result.Chats, 1)
	assert.Equal(t, 4, result.Chats[0].MessageCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddMessageUnknownChat(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err = repo.AddMessage(context.Background(), &Message{ChatID: uuid.New(), Content: "hi", Type: MessageUser})
	assert.ErrorIs(t, err, ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteChatMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	mock.ExpectExec("DELETE FROM chats").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
