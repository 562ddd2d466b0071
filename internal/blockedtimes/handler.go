package blockedtimes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// DefaultListSpan is how far ahead List looks when no end_date is given.
const DefaultListSpan = 30 * 24 * time.Hour

// Handler serves the blocked-time endpoints.
type Handler struct {
	repo      Repository
	providers availability.ProviderDirectory
	loc       *time.Location
	now       func() time.Time
	logger    *logging.Logger
}

// NewHandler creates a blocked-times handler. Naive timestamps are read in loc.
func NewHandler(repo Repository, providers availability.ProviderDirectory, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{repo: repo, providers: providers, loc: loc, now: time.Now, logger: logger}
}

// Routes mounts the blocked-time endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/provider/{providerID}", h.ListForProvider)
	r.Put("/{blockedTimeID}", h.Update)
	r.Delete("/{blockedTimeID}", h.Delete)
	return r
}

// List handles GET /api/blocked-times?provider_id=&start_date=&end_date=
// Recurring entries are expanded into one item per occurrence.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providerID, err := httpjson.ParseUUID(q.Get("provider_id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider_id")
		return
	}
	start := h.now().In(h.loc)
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		if start, err = httpjson.ParseTime(raw, h.loc); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid start_date")
			return
		}
	}
	end := start.Add(DefaultListSpan)
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		if end, err = httpjson.ParseTime(raw, h.loc); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid end_date")
			return
		}
	}
	window, err := availability.NewInterval(start, end)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "end_date must be after start_date")
		return
	}
	h.writeOccurrences(w, r, ListFilter{ProviderID: providerID, Window: &window})
}

// ListForProvider handles GET /api/blocked-times/provider/{providerID}?date=
// Without a date every active entry of the provider is returned unexpanded.
func (h *Handler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider id")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		rows, err := h.repo.List(r.Context(), ListFilter{ProviderID: &id})
		if err != nil {
			h.writeError(w, err)
			return
		}
		if rows == nil {
			rows = []*BlockedTime{}
		}
		httpjson.Write(w, http.StatusOK, rows)
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	window := availability.Interval{Start: day, End: day.AddDate(0, 0, 1)}
	h.writeOccurrences(w, r, ListFilter{ProviderID: &id, Window: &window})
}

func (h *Handler) writeOccurrences(w http.ResponseWriter, r *http.Request, filter ListFilter) {
	rows, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := Expand(rows, *filter.Window, h.loc)
	if out == nil {
		out = []Occurrence{}
	}
	httpjson.Write(w, http.StatusOK, out)
}

// Create handles POST /api/blocked-times
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockedTimeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := req.Resolve(h.loc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.providers != nil {
		if _, err := h.providers.ProviderWorkingHours(r.Context(), row.ProviderID); err != nil {
			h.writeError(w, err)
			return
		}
	}
	created, err := h.repo.Create(r.Context(), row)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("blocked time created",
		"blocked_time_id", created.ID,
		"provider_id", created.ProviderID,
		"block_type", created.BlockType,
		"recurring", created.IsRecurring,
	)
	httpjson.Write(w, http.StatusCreated, created)
}

// Update handles PUT /api/blocked-times/{blockedTimeID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.blockedTimeID(w, r)
	if !ok {
		return
	}
	var req UpdateBlockedTimeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := req.Apply(row, h.loc); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.repo.Update(r.Context(), row)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/blocked-times/{blockedTimeID}; entries are deactivated.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.blockedTimeID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("blocked time deactivated", "blocked_time_id", id)
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "Blocked time deleted"})
}

func (h *Handler) blockedTimeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "blockedTimeID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid blocked time id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBlockedTimeNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, availability.ErrProviderNotFound):
		httpjson.Error(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, ErrInvalidBlockType),
		errors.Is(err, ErrMissingPattern),
		errors.Is(err, ErrMissingProvider),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, availability.ErrInvalidInterval),
		errors.Is(err, availability.ErrInvalidPattern):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("blocked time request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
