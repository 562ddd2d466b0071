package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/clinic-crm/internal/analytics"
	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/internal/clients"
	appconfig "github.com/wolfman30/clinic-crm/internal/config"
	"github.com/wolfman30/clinic-crm/internal/database"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Stores groups the repositories behind the API.
type Stores struct {
	Providers    providers.Repository
	Clients      clients.Repository
	Services     catalog.Repository
	Appointments appointments.Repository
	BlockedTimes blockedtimes.Repository
	Chats        chats.Repository
	Analytics    analytics.Store

	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// Backend reports which storage the stores run on.
func (s *Stores) Backend() string {
	if s.pool != nil {
		return "postgres"
	}
	return "memory"
}

// Close releases database connections, if any.
func (s *Stores) Close() {
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// NewMemoryStores returns process-local stores.
func NewMemoryStores() *Stores {
	s := &Stores{
		Providers:    providers.NewInMemoryRepository(),
		Clients:      clients.NewInMemoryRepository(),
		Services:     catalog.NewInMemoryRepository(),
		Appointments: appointments.NewInMemoryRepository(),
		BlockedTimes: blockedtimes.NewInMemoryRepository(),
		Chats:        chats.NewInMemoryRepository(),
	}
	s.Analytics = analytics.NewRepositoryStore(s.Appointments, s.Providers, s.Clients, s.Services)
	return s
}

// NewPostgresStores returns stores backed by pool. Analytics reads go through
// database/sql on the same pool.
func NewPostgresStores(pool *pgxpool.Pool) *Stores {
	sqlDB := stdlib.OpenDBFromPool(pool)
	return &Stores{
		Providers:    providers.NewPostgresRepository(pool),
		Clients:      clients.NewPostgresRepository(pool),
		Services:     catalog.NewPostgresRepository(pool),
		Appointments: appointments.NewPostgresRepository(pool),
		BlockedTimes: blockedtimes.NewPostgresRepository(pool),
		Chats:        chats.NewPostgresRepository(pool),
		Analytics:    analytics.NewSQLStore(sqlDB),
		pool:         pool,
		sqlDB:        sqlDB,
	}
}

// BuildStores picks memory or Postgres storage from config. Memory is used when
// USE_MEMORY_STORE is set or no DATABASE_URL is configured.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.UseMemoryStore || strings.TrimSpace(cfg.DatabaseURL) == "" {
		if !cfg.UseMemoryStore {
			logger.Warn("DATABASE_URL not set; using in-memory stores")
		}
		return NewMemoryStores(), nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("connected to postgres")
	return NewPostgresStores(pool), nil
}
