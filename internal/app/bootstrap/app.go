// Package bootstrap wires configuration into the stores, services and HTTP
// handlers that make up the API process.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-crm/internal/analytics"
	"github.com/wolfman30/clinic-crm/internal/api/router"
	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/assistant"
	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/internal/clients"
	appconfig "github.com/wolfman30/clinic-crm/internal/config"
	httpmiddleware "github.com/wolfman30/clinic-crm/internal/http/middleware"
	"github.com/wolfman30/clinic-crm/internal/observability/metrics"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// App is the fully wired API process.
type App struct {
	Stores    *Stores
	Redis     *redis.Client
	LLM       *assistant.GeminiClient
	Checker   *availability.Checker
	Scheduler *appointments.Scheduler
	Chat      *assistant.ChatService
	Analytics *analytics.Service
	Registry  *prometheus.Registry

	limiter *httpmiddleware.RateLimiter
	handler http.Handler
}

// Build connects the configured backends and wires every service on top of
// them. Redis and Gemini are optional; without them the realtime and chat
// history caches are skipped and the assistant runs simulated.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stores, err := BuildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	llm, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}
	redisClient := BuildRedisClient(ctx, cfg, logger, true)

	// A nil *GeminiClient must not reach Wire as a non-nil interface.
	var client assistant.LLMClient
	if llm != nil {
		client = llm
	} else {
		logger.Warn("GEMINI_API_KEY not set; assistant runs in simulated mode")
	}

	app := Wire(cfg, logger, stores, redisClient, client)
	app.LLM = llm
	return app, nil
}

// Wire builds services and handlers over already constructed backends. llm
// may be nil.
func Wire(cfg *appconfig.Config, logger *logging.Logger, stores *Stores, redisClient *redis.Client, llm assistant.LLMClient) *App {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	schedMetrics := metrics.NewSchedulingMetrics(reg)

	directory := providers.NewDirectory(stores.Providers)
	checker := availability.NewChecker(
		directory,
		stores.Appointments,
		blockedtimes.NewSource(stores.BlockedTimes),
		availability.WithLocation(loc),
		availability.WithWindowPadding(cfg.AvailabilityWindowPadding),
		availability.WithMetrics(schedMetrics),
		availability.WithLogger(logger.Component("availability")),
	)
	scheduler := appointments.NewScheduler(
		stores.Appointments, checker, stores.Providers, stores.Clients, stores.Services,
		appointments.WithMetrics(schedMetrics),
		appointments.WithLogger(logger.Component("appointments")),
	)

	assistantLogger := logger.Component("assistant")
	dispatcher := assistant.NewDispatcher(scheduler, checker, stores.Providers, stores.Clients, stores.Services, assistantLogger)
	builder := assistant.NewContextBuilder(stores.Providers, stores.Clients, scheduler, checker)
	chatOpts := []assistant.ServiceOption{
		assistant.WithHistoryLimit(cfg.ChatHistoryLimit),
		assistant.WithHistoryCache(redisClient, cfg.ChatHistoryTTL),
		assistant.WithServiceLogger(assistantLogger),
	}
	if llm != nil {
		chatOpts = append(chatOpts, assistant.WithLLM(llm))
	}
	chat := assistant.NewChatService(stores.Chats, dispatcher, builder, chatOpts...)

	analyticsOpts := []analytics.Option{
		analytics.WithLocation(loc),
		analytics.WithLogger(logger.Component("analytics")),
	}
	if redisClient != nil {
		analyticsOpts = append(analyticsOpts, analytics.WithRedis(redisClient, cfg.RealtimeCacheTTL))
	}
	stats := analytics.NewService(stores.Analytics, analyticsOpts...)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ProvidersHandler:    providers.NewHandler(stores.Providers, logger),
		ClientsHandler:      clients.NewHandler(stores.Clients, logger),
		ServicesHandler:     catalog.NewHandler(stores.Services, directory, logger),
		AppointmentsHandler: appointments.NewHandler(scheduler, logger),
		BlockedTimesHandler: blockedtimes.NewHandler(stores.BlockedTimes, directory, loc, logger),
		ChatsHandler:        chats.NewHandler(stores.Chats, logger),
		AssistantHandler:    assistant.NewHandler(chat, logger),
		AnalyticsHandler:    analytics.NewHandler(stats, loc, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
	})

	return &App{
		Stores:    stores,
		Redis:     redisClient,
		Checker:   checker,
		Scheduler: scheduler,
		Chat:      chat,
		Analytics: stats,
		Registry:  reg,
		limiter:   limiter,
		handler:   handler,
	}
}

// Handler returns the HTTP entry point.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases every backend the app opened.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Stores != nil {
		a.Stores.Close()
	}
}
