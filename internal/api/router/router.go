package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-crm/internal/analytics"
	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/assistant"
	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/internal/clients"
	httpmiddleware "github.com/wolfman30/clinic-crm/internal/http/middleware"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ProvidersHandler    *providers.Handler
	ClientsHandler      *clients.Handler
	ServicesHandler     *catalog.Handler
	AppointmentsHandler *appointments.Handler
	BlockedTimesHandler *blockedtimes.Handler
	ChatsHandler        *chats.Handler
	AssistantHandler    *assistant.Handler
	AnalyticsHandler    *analytics.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Per-IP rate limit; nil disables it. The caller owns Stop.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ProvidersHandler != nil {
			api.Mount("/providers", cfg.ProvidersHandler.Routes())
		}
		if cfg.ClientsHandler != nil {
			api.Mount("/clients", cfg.ClientsHandler.Routes())
		}
		if cfg.ServicesHandler != nil {
			api.Mount("/services", cfg.ServicesHandler.Routes())
		}
		if cfg.AppointmentsHandler != nil {
			api.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
		if cfg.BlockedTimesHandler != nil {
			api.Mount("/blocked-times", cfg.BlockedTimesHandler.Routes())
		}
		if cfg.ChatsHandler != nil {
			api.Mount("/chats", cfg.ChatsHandler.Routes())
		}
		if cfg.AssistantHandler != nil {
			api.Mount("/ai", cfg.AssistantHandler.Routes())
		}
		if cfg.AnalyticsHandler != nil {
			api.Mount("/analytics", cfg.AnalyticsHandler.Routes())
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Error(w, http.StatusNotFound, "not found")
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
