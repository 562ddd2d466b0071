package clients

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler handles HTTP requests for clients
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new clients handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the client endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{clientID}", h.Get)
	r.Put("/{clientID}", h.Update)
	r.Delete("/{clientID}", h.Delete)
	return r
}

// List handles GET /api/clients?search=&active_only=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.List(r.Context(), ListFilter{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: httpjson.QueryBool(r, "active_only", true),
		Limit:      httpjson.QueryInt(r, "limit", MaxListLimit),
	})
	if err != nil {
		h.logger.Error("failed to list clients", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []*Client{}
	}
	httpjson.Write(w, http.StatusOK, clients)
}

// Create handles POST /api/clients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("client created", "client_id", p.ID, "name", p.Name)
	httpjson.Write(w, http.StatusCreated, p)
}

// Get handles GET /api/clients/{clientID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
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

// Update handles PUT /api/clients/{clientID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var req UpdateClientRequest
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

// Delete handles DELETE /api/clients/{clientID}; clients are deactivated, not removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("client deactivated", "client_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid client id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidDateOfBirth):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("client request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
