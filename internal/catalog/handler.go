package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler handles HTTP requests for services
type Handler struct {
	repo      Repository
	providers availability.ProviderDirectory
	logger    *logging.Logger
}

// NewHandler creates a new services handler. providers is used to reject
// services for unknown providers.
func NewHandler(repo Repository, providers availability.ProviderDirectory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, providers: providers, logger: logger}
}

// Routes mounts the service endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{serviceID}", h.Get)
	r.Put("/{serviceID}", h.Update)
	r.Delete("/{serviceID}", h.Delete)
	return r
}

// List handles GET /api/services?provider_id=&active_only=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	providerID, err := httpjson.ParseUUID(r.URL.Query().Get("provider_id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider id format")
		return
	}
	services, err := h.repo.List(r.Context(), ListFilter{
		ProviderID: providerID,
		ActiveOnly: httpjson.QueryBool(r, "active_only", true),
	})
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to list services")
		return
	}
	if services == nil {
		services = []*Service{}
	}
	httpjson.Write(w, http.StatusOK, services)
}

// Create handles POST /api/services
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if h.providers != nil {
		if _, err := h.providers.ProviderWorkingHours(r.Context(), req.ProviderID); err != nil {
			h.writeError(w, err)
			return
		}
	}
	s, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("service created", "service_id", s.ID, "provider_id", s.ProviderID, "name", s.Name)
	httpjson.Write(w, http.StatusCreated, s)
}

// Get handles GET /api/services/{serviceID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	s, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

// Update handles PUT /api/services/{serviceID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	var req UpdateServiceRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

// Delete handles DELETE /api/services/{serviceID}; services are deactivated.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serviceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid service id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrServiceNotFound), errors.Is(err, availability.ErrProviderNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidProvider):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("service request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
