package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/observability/metrics"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

type fixture struct {
	repo      *InMemoryRepository
	providers *providers.InMemoryRepository
	clients   *clients.InMemoryRepository
	services  *catalog.InMemoryRepository
	blocks    *blockedtimes.InMemoryRepository
	registry  *prometheus.Registry
	scheduler *Scheduler

	provider *providers.Provider
	client   *clients.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		repo:      NewInMemoryRepository(),
		providers: providers.NewInMemoryRepository(),
		clients:   clients.NewInMemoryRepository(),
		services:  catalog.NewInMemoryRepository(),
		blocks:    blockedtimes.NewInMemoryRepository(),
		registry:  prometheus.NewRegistry(),
	}
	m := metrics.NewSchedulingMetrics(f.registry)
	checker := availability.NewChecker(
		providers.NewDirectory(f.providers),
		f.repo,
		blockedtimes.NewSource(f.blocks),
		availability.WithLocation(time.UTC),
		availability.WithMetrics(m),
	)
	f.scheduler = NewScheduler(f.repo, checker, f.providers, f.clients, f.services, WithMetrics(m))

	var err error
	f.provider, err = f.providers.Create(ctx, &providers.CreateProviderRequest{Name: "Cohen", Title: "Dr.", WorkingHours: "09:00-17:00"})
	require.NoError(t, err)
	f.client, err = f.clients.Create(ctx, &clients.CreateClientRequest{Name: "Maya Katz"})
	require.NoError(t, err)
	return f
}

func (f *fixture) request(start, end string) *CreateAppointmentRequest {
	return &CreateAppointmentRequest{ProviderID: f.provider.ID, ClientID: f.client.ID, Start: start, End: end}
}

func (f *fixture) book(t *testing.T, start, end string) *Appointment {
	t.Helper()
	a, err := f.scheduler.Book(context.Background(), f.request(start, end), SourceAPI)
	require.NoError(t, err)
	return a
}

func (f *fixture) lunchBlock(t *testing.T) {
	t.Helper()
	_, err := f.blocks.Create(context.Background(), &blockedtimes.BlockedTime{
		ProviderID:        f.provider.ID,
		Start:             time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC),
		BlockType:         blockedtimes.BlockLunch,
		IsRecurring:       true,
		RecurrencePattern: availability.PatternWeekly,
		IsActive:          true,
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

