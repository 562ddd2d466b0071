package appointments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestCreateAppointmentHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)

	w := serve(h, http.MethodPost, "/", map[string]any{
		"provider_id": f.provider.ID,
		"client_id":   f.client.ID,
		"start_time":  "2025-01-06T10:00:00",
		"end_time":    "2025-01-06T11:00:00",
		"notes":       "first visit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Maya Katz", got["title"])
	assert.Equal(t, "Dr. Cohen", got["providerName"])
	assert.Equal(t, "scheduled", got["status"])
	props, ok := got["extendedProps"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "first visit", props["notes"])
}

func TestCreateAppointmentConflictReturns409(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)
	f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")

	w := serve(h, http.MethodPost, "/", map[string]any{
		"provider_id": f.provider.ID,
		"client_id":   f.client.ID,
		"start":       "2025-01-06T10:30:00",
		"end":         "2025-01-06T11:30:00",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var got conflictResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Contains(t, got.Error, "not available")
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, "appointment", string(got.Conflicts[0].Kind))
}

func TestCreateAppointmentErrors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown provider", map[string]any{"provider_id": uuid.New(), "client_id": f.client.ID, "start": "2025-01-06T10:00:00", "end": "2025-01-06T11:00:00"}, http.StatusNotFound},
		{"unknown client", map[string]any{"provider_id": f.provider.ID, "client_id": uuid.New(), "start": "2025-01-06T10:00:00", "end": "2025-01-06T11:00:00"}, http.StatusNotFound},
		{"reversed", map[string]any{"provider_id": f.provider.ID, "client_id": f.client.ID, "start": "2025-01-06T11:00:00", "end": "2025-01-06T10:00:00"}, http.StatusBadRequest},
		{"bad timestamp", map[string]any{"provider_id": f.provider.ID, "client_id": f.client.ID, "start": "tomorrow", "end": "2025-01-06T10:00:00"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, http.MethodPost, "/", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDeleteAppointmentCancels(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)
	a := f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")

	w := serve(h, http.MethodDelete, "/"+a.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(h, http.MethodGet, "/"+a.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "cancelled", got["status"])

	w = serve(h, http.MethodDelete, "/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAppointmentsFilters(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)
	f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")
	f.book(t, "2025-01-08T10:00:00", "2025-01-08T11:00:00")

	w := serve(h, http.MethodGet, "/?provider_id="+f.provider.ID.String()+"&start_date=2025-01-07&end_date=2025-01-09", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 1)

	w = serve(h, http.MethodGet, "/?status=pending", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, http.MethodGet, "/?client_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.scheduler, nil)
	f.book(t, "2025-01-06T09:00:00", "2025-01-06T16:30:00")

	w := serve(h, http.MethodGet, "/availability?date=2025-01-06&duration_minutes=30", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got AvailabilityReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 30, got.DurationMinutes)
	require.Len(t, got.Providers, 1)
	assert.Equal(t, []Slot{{Start: "16:30", End: "17:00"}}, got.Providers[0].AvailableSlots)

	w = serve(h, http.MethodGet, "/availability", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, http.MethodGet, "/availability?date=2025-01-06&duration_minutes=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
