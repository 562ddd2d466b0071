package analytics

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

var fixedNow = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

type dashboard struct {
	appts    *appointments.InMemoryRepository
	store    *RepositoryStore
	cohen    *providers.Provider
	levi     *providers.Provider
	client   *clients.Client
	botox    *catalog.Service
	current  *appointments.Appointment
	upcoming *appointments.Appointment
}

func newDashboard(t *testing.T) *dashboard {
	t.Helper()
	ctx := context.Background()
	providerRepo := providers.NewInMemoryRepository()
	clientRepo := clients.NewInMemoryRepository()
	serviceRepo := catalog.NewInMemoryRepository()
	d := &dashboard{appts: appointments.NewInMemoryRepository()}
	d.store = NewRepositoryStore(d.appts, providerRepo, clientRepo, serviceRepo)

	var err error
	d.cohen, err = providerRepo.Create(ctx, &providers.CreateProviderRequest{Name: "Cohen", Title: "Dr."})
	require.NoError(t, err)
	d.levi, err = providerRepo.Create(ctx, &providers.CreateProviderRequest{Name: "Levi"})
	require.NoError(t, err)
	d.client, err = clientRepo.Create(ctx, &clients.CreateClientRequest{Name: "Maya Katz"})
	require.NoError(t, err)
	d.botox, err = serviceRepo.Create(ctx, &catalog.CreateServiceRequest{ProviderID: d.cohen.ID, Name: "Botox", DurationMinutes: 60, Price: 200})
	require.NoError(t, err)

	d.current = d.add(t, d.cohen, "2025-03-10T10:00:00Z", 60, appointments.StatusConfirmed, 200, &d.botox.ID, "Botox touch-up")
	d.upcoming = d.add(t, d.cohen, "2025-03-10T13:00:00Z", 60, appointments.StatusScheduled, 150, nil, "")
	d.add(t, d.cohen, "2025-03-09T16:00:00Z", 60, appointments.StatusCompleted, 100, &d.botox.ID, "")
	d.add(t, d.cohen, "2025-03-10T02:00:00Z", 60, appointments.StatusCancelled, 500, nil, "")
	d.add(t, d.levi, "2025-03-01T09:00:00Z", 30, appointments.StatusNoShow, 0, nil, "")
	return d
}

func (d *dashboard) add(t *testing.T, p *providers.Provider, start string, minutes int, status appointments.Status, revenue float64, serviceID *uuid.UUID, title string) *appointments.Appointment {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	a, err := d.appts.Create(context.Background(), &appointments.Appointment{
		Title:       title,
		Start:       s,
		End:         s.Add(time.Duration(minutes) * time.Minute),
		ProviderID:  p.ID,
		ClientID:    d.client.ID,
		ServiceID:   serviceID,
		ServiceType: "Consult",
		Status:      status,
		Revenue:     &revenue,
	})
	require.NoError(t, err)
	return a
}

func (d *dashboard) service(opts ...Option) *Service {
	s := NewService(d.store, opts...)
	s.now = func() time.Time { return fixedNow }
	return s
}

var march = Range{
	From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
}

func TestOverview(t *testing.T) {
	d := newDashboard(t)

	got, err := d.service().Overview(context.Background(), march)
	require.NoError(t, err)

	assert.Equal(t, 5, got.TotalAppointments)
	assert.Equal(t, 1, got.TotalClients)
	assert.Equal(t, 2, got.TotalProviders)
	assert.Equal(t, 4, got.TodayAppointments)
	assert.Equal(t, 4, got.WeekAppointments)
	assert.Equal(t, map[string]int{
		"confirmed": 1, "scheduled": 1, "completed": 1, "cancelled": 1, "no_show": 1,
	}, got.StatusBreakdown)
}

func TestOverview_ProviderFilter(t *testing.T) {
	d := newDashboard(t)
	rng := march
	rng.ProviderID = &d.levi.ID

	got, err := d.service().Overview(context.Background(), rng)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalAppointments)
	assert.Equal(t, 0, got.TodayAppointments)
	assert.Equal(t, map[string]int{"no_show": 1}, got.StatusBreakdown)
}

func TestOverTime_GroupsByClinicDate(t *testing.T) {
	d := newDashboard(t)

	utc, err := d.service().OverTime(context.Background(), march)
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{"2025-03-01", 1}, {"2025-03-09", 1}, {"2025-03-10", 3}}, utc)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	local, err := d.service(WithLocation(ny)).OverTime(context.Background(), march)
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{"2025-03-01", 1}, {"2025-03-09", 2}, {"2025-03-10", 2}}, local)
}

func TestByProvider_BusiestFirst(t *testing.T) {
	d := newDashboard(t)

	got, err := d.service().ByProvider(context.Background(), march)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ProviderCount{ProviderID: d.cohen.ID, Provider: "Dr. Cohen", Count: 4}, got[0])
	assert.Equal(t, ProviderCount{ProviderID: d.levi.ID, Provider: "Levi", Count: 1}, got[1])
}

func TestByStatus_ListsEveryStatus(t *testing.T) {
	d := newDashboard(t)
	empty := Range{From: march.From.AddDate(1, 0, 0), To: march.To.AddDate(1, 0, 0)}

	got, err := d.service().ByStatus(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{
		{"scheduled", 0}, {"confirmed", 0}, {"completed", 0}, {"cancelled", 0}, {"no_show", 0},
	}, got)

	got, err = d.service().ByStatus(context.Background(), march)
	require.NoError(t, err)
	for _, sc := range got {
		assert.Equal(t, 1, sc.Count, sc.Status)
	}
}

func TestRevenue_CountsBookedStatusesOnly(t *testing.T) {
	d := newDashboard(t)

	got, err := d.service().Revenue(context.Background(), march)
	require.NoError(t, err)
	assert.Equal(t, 450.0, got.TotalRevenue)
	assert.Equal(t, []DayRevenue{{"2025-03-09", 100}, {"2025-03-10", 350}}, got.Data)
}

func TestServicePerformance(t *testing.T) {
	d := newDashboard(t)

	got, err := d.service().ServicePerformance(context.Background(), march)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Botox", got[0].Service)
	assert.Equal(t, &d.botox.ID, got[0].ServiceID)
	assert.Equal(t, 2, got[0].Bookings)
	assert.Equal(t, 300.0, got[0].Revenue)
	assert.Equal(t, "Consult", got[1].Service)
	assert.Nil(t, got[1].ServiceID)
	assert.Equal(t, 1, got[1].Bookings)
}

func TestRealtime(t *testing.T) {
	d := newDashboard(t)

	got, err := d.service().Realtime(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, got.TotalToday)
	assert.Equal(t, map[string]int{"confirmed": 1, "scheduled": 1, "completed": 1, "cancelled": 1}, got.TodayByStatus)
	assert.Equal(t, 37.5, got.OccupancyRate)
	assert.Equal(t, fixedNow, got.Timestamp)

	require.NotNil(t, got.CurrentAppointment)
	assert.Equal(t, d.current.ID, got.CurrentAppointment.ID)
	assert.Equal(t, "Botox touch-up", got.CurrentAppointment.Title)
	assert.Equal(t, "Dr. Cohen", got.CurrentAppointment.Provider)
	require.NotNil(t, got.CurrentAppointment.MinutesRemaining)
	assert.Equal(t, 30, *got.CurrentAppointment.MinutesRemaining)

	require.NotNil(t, got.NextAppointment)
	assert.Equal(t, d.upcoming.ID, got.NextAppointment.ID)
	assert.Equal(t, "Maya Katz", got.NextAppointment.Title)
	require.NotNil(t, got.NextAppointment.MinutesUntil)
	assert.Equal(t, 150, *got.NextAppointment.MinutesUntil)
}

func TestRealtime_OccupancyCapped(t *testing.T) {
	d := newDashboard(t)
	d.add(t, d.cohen, "2025-03-10T00:00:00Z", 10*60, appointments.StatusCompleted, 0, nil, "")

	got, err := d.service().Realtime(context.Background(), &d.cohen.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.OccupancyRate)
}

func TestRealtime_CachedInRedis(t *testing.T) {
	d := newDashboard(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := d.service(WithRedis(client, time.Minute))
	ctx := context.Background()

	first, err := svc.Realtime(ctx, nil)
	require.NoError(t, err)
	assert.True(t, mr.Exists("analytics:realtime:all"))

	d.add(t, d.levi, "2025-03-10T15:00:00Z", 30, appointments.StatusScheduled, 0, nil, "")

	cached, err := svc.Realtime(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first.TotalToday, cached.TotalToday)

	mr.FastForward(2 * time.Minute)
	fresh, err := svc.Realtime(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first.TotalToday+1, fresh.TotalToday)
}

func TestRealtime_CacheKeyPerProvider(t *testing.T) {
	id := uuid.MustParse("6f1c1a52-4c1e-4a44-9d11-1f5b1b4f2a10")
	assert.Equal(t, "analytics:realtime:all", realtimeKey(nil))
	assert.Equal(t, "analytics:realtime:6f1c1a52-4c1e-4a44-9d11-1f5b1b4f2a10", realtimeKey(&id))
}
