package chats

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingRepo() *InMemoryRepository {
	repo := NewInMemoryRepository()
	clock := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func serve(h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func TestChatLifecycle(t *testing.T) {
	repo := steppingRepo()
	h := NewHandler(repo, nil)

	w := serve(h, http.MethodPost, "/", map[string]string{"title": "Monday planning"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created Chat
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "Monday planning", created.Title)

	_, err := repo.AddMessage(context.Background(), &Message{ChatID: created.ID, Content: "hello", Type: MessageUser})
	require.NoError(t, err)
	_, err = repo.AddMessage(context.Background(), &Message{ChatID: created.ID, Content: "Hi! How can I help?", Type: MessageAI, ModelUsed: "gemini-2.5-flash"})
	require.NoError(t, err)

	w = serve(h, http.MethodGet, "/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Chat
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 2, got.MessageCount)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, MessageAI, got.Messages[1].Type)

	w = serve(h, http.MethodPut, "/"+created.ID.String(), map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Renamed", got.Title)

	w = serve(h, http.MethodPut, "/"+created.ID.String(), map[string]string{"title": ""})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Renamed", got.Title, "empty title leaves it unchanged")

	w = serve(h, http.MethodDelete, "/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(h, http.MethodGet, "/"+created.ID.String()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListChatsMostRecentFirst(t *testing.T) {
	repo := steppingRepo()
	h := NewHandler(repo, nil)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, title := range []string{"a", "b", "c"} {
		c, err := repo.Create(ctx, title)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	require.NoError(t, repo.Touch(ctx, ids[0]))

	w := serve(h, http.MethodGet, "/?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got ListResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Chats, 2)
	assert.Equal(t, "a", got.Chats[0].Title)
	assert.Equal(t, "c", got.Chats[1].Title)

	w = serve(h, http.MethodGet, "/?skip=10", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Empty(t, got.Chats)
	assert.Equal(t, 3, got.Total)
}

func TestListMessagesPages(t *testing.T) {
	repo := steppingRepo()
	h := NewHandler(repo, nil)
	ctx := context.Background()
	c, err := repo.Create(ctx, "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := repo.AddMessage(ctx, &Message{ChatID: c.ID, Content: strings.Repeat("x", i+1), Type: MessageUser})
		require.NoError(t, err)
	}

	w := serve(h, http.MethodGet, "/"+c.ID.String()+"/messages?skip=1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []Message
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "xx", msgs[0].Content)

	recent, err := repo.RecentMessages(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "xxxx", recent[0].Content)
	assert.Equal(t, "xxxxx", recent[1].Content)

	_, err = repo.AddMessage(ctx, &Message{ChatID: c.ID, Content: "  ", Type: MessageUser})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "Book Dana tomorrow", TitleFromMessage("  Book Dana tomorrow "))
	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+"...", TitleFromMessage(long))
}
