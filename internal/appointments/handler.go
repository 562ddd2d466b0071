package appointments

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	scheduler *Scheduler
	logger    *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(scheduler *Scheduler, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{scheduler: scheduler, logger: logger}
}

// Routes mounts the appointment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/availability", h.Availability)
	r.Get("/{appointmentID}", h.Get)
	r.Put("/{appointmentID}", h.Update)
	r.Delete("/{appointmentID}", h.Delete)
	return r
}

type conflictResponse struct {
	Error     string                  `json:"error"`
	Conflicts []availability.Conflict `json:"conflicts,omitempty"`
}

// List handles GET /api/appointments?provider_id=&client_id=&start_date=&end_date=&status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter ListFilter
		err    error
	)
	if filter.ProviderID, err = httpjson.ParseUUID(q.Get("provider_id")); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider_id")
		return
	}
	if filter.ClientID, err = httpjson.ParseUUID(q.Get("client_id")); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid client_id")
		return
	}
	loc := h.scheduler.Location()
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		t, err := httpjson.ParseTime(raw, loc)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		filter.From = &t
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		t, err := httpjson.ParseTime(raw, loc)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		filter.To = &t
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		if filter.Status, err = ParseStatus(raw); err != nil {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	views, err := h.scheduler.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, views)
}

// Create handles POST /api/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.scheduler.Book(r.Context(), &req, SourceAPI)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.scheduler.Get(r.Context(), created.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, view)
}

// Availability handles GET /api/appointments/availability?date=&provider_id=&duration_minutes=
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := httpjson.ParseTime(q.Get("date"), h.scheduler.Location())
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "date is required as YYYY-MM-DD")
		return
	}
	providerID, err := httpjson.ParseUUID(q.Get("provider_id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider_id")
		return
	}
	minutes := httpjson.QueryInt(r, "duration_minutes", DefaultSlotMinutes)

	report, err := h.scheduler.Availability(r.Context(), date, time.Duration(minutes)*time.Minute, providerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, report)
}

// Get handles GET /api/appointments/{appointmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	view, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

// Update handles PUT /api/appointments/{appointmentID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.scheduler.Update(r.Context(), id, &req); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

// Delete handles DELETE /api/appointments/{appointmentID}; the appointment is cancelled.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.scheduler.Cancel(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		httpjson.Write(w, http.StatusConflict, conflictResponse{Error: conflict.Error(), Conflicts: conflict.Conflicts})
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, providers.ErrProviderNotFound),
		errors.Is(err, availability.ErrProviderNotFound),
		errors.Is(err, clients.ErrClientNotFound),
		errors.Is(err, catalog.ErrServiceNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrMissingParticipant),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidRevenue),
		errors.Is(err, availability.ErrInvalidInterval),
		errors.Is(err, availability.ErrInvalidDuration):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("appointment request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
