package httpjson

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWritesJSONBody(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "slot unavailable")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "slot unavailable", body.Error)
}

func TestWriteNilPayload(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Dana"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "Dana", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.EqualError(t, Decode(req, &dst), "request body required")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Error(t, Decode(req, &dst))
}

func TestParseTime(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	got, err := ParseTime("2026-01-05T10:00:00Z", jerusalem)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)))

	got, err = ParseTime("2026-01-05T10:00:00", jerusalem)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)))

	got, err = ParseTime("2026-01-05", nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))

	_, err = ParseTime("next tuesday", nil)
	assert.Error(t, err)
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID("")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = ParseUUID("not-a-uuid")
	assert.Error(t, err)

	id, err = ParseUUID("7f0c0a0e-4f44-4b7f-9a55-2f7c6a0e9c11")
	require.NoError(t, err)
	assert.Equal(t, "7f0c0a0e-4f44-4b7f-9a55-2f7c6a0e9c11", id.String())
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&active_only=false&skip=abc", nil)
	assert.Equal(t, 25, QueryInt(req, "limit", 100))
	assert.Equal(t, 0, QueryInt(req, "skip", 0))
	assert.False(t, QueryBool(req, "active_only", true))
	assert.True(t, QueryBool(req, "missing", true))
}
