package analytics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler serves the dashboard analytics endpoints.
type Handler struct {
	service *Service
	loc     *time.Location
	now     func() time.Time
	logger  *logging.Logger
}

// NewHandler creates an analytics handler. Naive dates are read in loc.
func NewHandler(service *Service, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, loc: loc, now: time.Now, logger: logger}
}

// Routes mounts the analytics endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/overview", h.Overview)
	r.Get("/appointments-over-time", rangeEndpoint(h, h.service.OverTime))
	r.Get("/appointments-by-provider", rangeEndpoint(h, h.service.ByProvider))
	r.Get("/appointments-by-status", rangeEndpoint(h, h.service.ByStatus))
	r.Get("/revenue", h.Revenue)
	r.Get("/service-performance", rangeEndpoint(h, h.service.ServicePerformance))
	r.Get("/realtime", h.Realtime)
	return r
}

type rangeEnvelope struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Data      any       `json:"data"`
}

func rangeEndpoint[T any](h *Handler, compute func(context.Context, Range) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, ok := h.parseRange(w, r)
		if !ok {
			return
		}
		data, err := compute(r.Context(), rng)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		httpjson.Write(w, http.StatusOK, rangeEnvelope{StartDate: rng.From, EndDate: rng.To, Data: data})
	}
}

// Overview handles GET /api/analytics/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Overview(r.Context(), rng)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, struct {
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		*Overview
	}{rng.From, rng.To, stats})
}

// Revenue handles GET /api/analytics/revenue
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Revenue(r.Context(), rng)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, struct {
		StartDate    time.Time    `json:"start_date"`
		EndDate      time.Time    `json:"end_date"`
		TotalRevenue float64      `json:"total_revenue"`
		Data         []DayRevenue `json:"data"`
	}{rng.From, rng.To, report.TotalRevenue, report.Data})
}

// Realtime handles GET /api/analytics/realtime?provider_id=
func (h *Handler) Realtime(w http.ResponseWriter, r *http.Request) {
	providerID, err := httpjson.ParseUUID(r.URL.Query().Get("provider_id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider_id")
		return
	}
	snapshot, err := h.service.Realtime(r.Context(), providerID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, snapshot)
}

// parseRange reads start_date, end_date and provider_id. A missing end is
// now and a missing start is DefaultRange before the end.
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, bool) {
	q := r.URL.Query()
	providerID, err := httpjson.ParseUUID(q.Get("provider_id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid provider_id")
		return Range{}, false
	}
	end := h.now().In(h.loc)
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		if end, err = httpjson.ParseTime(raw, h.loc); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid end_date")
			return Range{}, false
		}
	}
	start := end.Add(-DefaultRange)
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		if start, err = httpjson.ParseTime(raw, h.loc); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid start_date")
			return Range{}, false
		}
	}
	if end.Before(start) {
		httpjson.Error(w, http.StatusBadRequest, "end_date must not be before start_date")
		return Range{}, false
	}
	return Range{From: start, To: end, ProviderID: providerID}, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("analytics query failed", "path", r.URL.Path, "error", err)
	httpjson.Error(w, http.StatusInternalServerError, "internal error")
}
