package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/pkg/logging"
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

func TestCreateProvider_Success(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	w := serve(handler, http.MethodPost, "/", map[string]any{
		"name":      "Cohen",
		"title":     "Dr.",
		"specialty": "Dermatology",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["displayName"] != "Dr. Cohen" {
		t.Errorf("expected displayName Dr. Cohen, got %v", got["displayName"])
	}
	if got["color"] != DefaultColor {
		t.Errorf("expected default color, got %v", got["color"])
	}
	if got["workingHours"] != "09:00-17:00" {
		t.Errorf("expected default working hours, got %v", got["workingHours"])
	}
	if got["isActive"] != true {
		t.Errorf("expected active provider")
	}
}

func TestCreateProvider_Validation(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"name": "  "}},
		{"reversed working hours", map[string]any{"name": "Levy", "working_hours": "17:00-09:00"}},
		{"malformed working hours", map[string]any{"name": "Levy", "working_hours": "all day"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(handler, http.MethodPost, "/", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestListProviders_ActiveOnlyDefault(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil)
	ctx := context.Background()

	active, _ := repo.Create(ctx, &CreateProviderRequest{Name: "Barak"})
	inactive, _ := repo.Create(ctx, &CreateProviderRequest{Name: "Avivi"})
	if err := repo.Deactivate(ctx, inactive.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	var list []Provider
	w := serve(handler, http.MethodGet, "/", nil)
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != active.ID {
		t.Fatalf("expected only the active provider, got %+v", list)
	}

	w = serve(handler, http.MethodGet, "/?active_only=false", nil)
	list = nil
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Avivi" {
		t.Fatalf("expected both providers ordered by name, got %+v", list)
	}
}

func TestUpdateAndDeleteProvider(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil)
	p, _ := repo.Create(context.Background(), &CreateProviderRequest{Name: "Mizrahi"})

	w := serve(handler, http.MethodPut, "/"+p.ID.String(), map[string]any{"working_hours": "08:00-12:00"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	updated, _ := repo.GetByID(context.Background(), p.ID)
	if updated.WorkingHours != "08:00-12:00" || updated.Name != "Mizrahi" {
		t.Fatalf("unexpected provider after update: %+v", updated)
	}

	w = serve(handler, http.MethodDelete, "/"+p.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	deleted, err := repo.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("soft-deleted provider should still load: %v", err)
	}
	if deleted.IsActive {
		t.Fatalf("expected provider to be inactive")
	}
}

func TestProviderNotFoundAndBadID(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil)

	if w := serve(handler, http.MethodGet, "/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w := serve(handler, http.MethodGet, "/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if w := serve(handler, http.MethodDelete, "/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
