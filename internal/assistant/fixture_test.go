package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/blockedtimes"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

// Monday 2025-01-06, 08:00 UTC.
var fixedNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

type fixture struct {
	appts      *appointments.InMemoryRepository
	providers  *providers.InMemoryRepository
	clients    *clients.InMemoryRepository
	services   *catalog.InMemoryRepository
	blocks     *blockedtimes.InMemoryRepository
	chats      *chats.InMemoryRepository
	scheduler  *appointments.Scheduler
	dispatcher *Dispatcher
	context    *ContextBuilder

	provider *providers.Provider
	client   *clients.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		appts:     appointments.NewInMemoryRepository(),
		providers: providers.NewInMemoryRepository(),
		clients:   clients.NewInMemoryRepository(),
		services:  catalog.NewInMemoryRepository(),
		blocks:    blockedtimes.NewInMemoryRepository(),
		chats:     chats.NewInMemoryRepository(),
	}
	checker := availability.NewChecker(
		providers.NewDirectory(f.providers),
		f.appts,
		blockedtimes.NewSource(f.blocks),
		availability.WithLocation(time.UTC),
	)
	f.scheduler = appointments.NewScheduler(f.appts, checker, f.providers, f.clients, f.services)
	f.dispatcher = NewDispatcher(f.scheduler, checker, f.providers, f.clients, f.services, nil)
	f.dispatcher.now = func() time.Time { return fixedNow }
	f.context = NewContextBuilder(f.providers, f.clients, f.scheduler, checker)
	f.context.now = func() time.Time { return fixedNow }

	var err error
	f.provider, err = f.providers.Create(ctx, &providers.CreateProviderRequest{Name: "Cohen", Title: "Dr.", WorkingHours: "09:00-17:00"})
	require.NoError(t, err)
	f.client, err = f.clients.Create(ctx, &clients.CreateClientRequest{Name: "Maya Katz", Phone: "555-0101"})
	require.NoError(t, err)
	return f
}

func (f *fixture) lunchBlock(t *testing.T) {
	t.Helper()
	_, err := f.blocks.Create(context.Background(), &blockedtimes.BlockedTime{
		ProviderID:        f.provider.ID,
		Start:             time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC),
		BlockType:         blockedtimes.BlockLunch,
		IsRecurring:       true,
		RecurrencePattern: availability.PatternDaily,
		IsActive:          true,
	})
	require.NoError(t, err)
}

func (f *fixture) bookArgs(date, start, end string) map[string]any {
	args := map[string]any{
		"provider_id": f.provider.ID.String(),
		"client_id":   f.client.ID.String(),
		"date":        date,
		"start_time":  start,
	}
	if end != "" {
		args["end_time"] = end
	}
	return args
}
