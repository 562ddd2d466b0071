package providers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler handles HTTP requests for providers
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new providers handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the provider endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{providerID}", h.Get)
	r.Put("/{providerID}", h.Update)
	r.Delete("/{providerID}", h.Delete)
	return r
}

// List handles GET /api/providers?active_only=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.repo.List(r.Context(), ListFilter{ActiveOnly: httpjson.QueryBool(r, "active_only", true)})
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to list providers")
		return
	}
	if providers == nil {
		providers = []*Provider{}
	}
	httpjson.Write(w, http.StatusOK, providers)
}

// Create handles POST /api/providers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProviderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("provider created", "provider_id", p.ID, "name", p.Name)
	httpjson.Write(w, http.StatusCreated, p)
}

// Get handles GET /api/providers/{providerID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.providerID(w, r)
	if !ok {
		return
	}
	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// Update handles PUT /api/providers/{providerID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.providerID(w, r)
	if !ok {
		return
	}
	var req UpdateProviderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// Delete handles DELETE /api/providers/{providerID}; providers are deactivated, not removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.providerID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("provider deactivated", "provider_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) providerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProviderNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidName), errors.Is(err, availability.ErrInvalidWorkingHours):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("provider request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
