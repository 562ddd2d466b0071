package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

func TestBookRejectsOverlapButAllowsAbutting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.book(t, "2025-01-06T10:00:00", "2025-01-06T10:30:00")

	_, err := f.scheduler.Book(ctx, f.request("2025-01-06T10:15:00", "2025-01-06T10:45:00"), SourceAPI)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, ErrConflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, existing.ID, conflict.Conflicts[0].ID)

	f.book(t, "2025-01-06T10:30:00", "2025-01-06T11:00:00")
	f.book(t, "2025-01-06T09:30:00", "2025-01-06T10:00:00")
}

func TestSequentialBookingsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	// Offsets in quarter hours, lengths of 30 or 45 minutes.
	for i := 0; i < 24; i++ {
		start := base.Add(time.Duration(i*15) * time.Minute)
		end := start.Add(time.Duration(30+15*(i%2)) * time.Minute)
		_, _ = f.scheduler.Book(ctx, f.request(start.Format(time.RFC3339), end.Format(time.RFC3339)), SourceAPI)
	}

	booked, err := f.repo.List(ctx, ListFilter{ProviderID: &f.provider.ID})
	require.NoError(t, err)
	require.NotEmpty(t, booked)
	for i := range booked {
		for j := i + 1; j < len(booked); j++ {
			a := availability.Interval{Start: booked[i].Start, End: booked[i].End}
			b := availability.Interval{Start: booked[j].Start, End: booked[j].End}
			assert.False(t, a.Overlaps(b), "%v overlaps %v", a, b)
		}
	}
}

func TestConcurrentBookingsOfSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.scheduler.Book(ctx, f.request("2025-01-06T14:00:00", "2025-01-06T15:00:00"), SourceAPI)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestBookRespectsRecurringBlock(t *testing.T) {
	f := newFixture(t)
	f.lunchBlock(t)

	_, err := f.scheduler.Book(context.Background(), f.request("2025-01-13T12:30:00", "2025-01-13T13:30:00"), SourceAPI)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, availability.ConflictBlockedTime, conflict.Conflicts[0].Kind)

	f.book(t, "2025-01-14T12:30:00", "2025-01-14T13:30:00")
}

func TestCancelReleasesSlotButNoShowKeepsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cancelled := f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")
	require.NoError(t, f.scheduler.Cancel(ctx, cancelled.ID))
	f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")

	noShow := f.book(t, "2025-01-06T14:00:00", "2025-01-06T15:00:00")
	_, err := f.scheduler.Update(ctx, noShow.ID, &UpdateAppointmentRequest{Status: ptr("no_show")})
	require.NoError(t, err)
	_, err = f.scheduler.Book(ctx, f.request("2025-01-06T14:00:00", "2025-01-06T15:00:00"), SourceAPI)
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, f.scheduler.Cancel(ctx, uuid.New()), ErrAppointmentNotFound)
}

func TestUpdateExcludesItselfFromCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")
	f.book(t, "2025-01-06T11:00:00", "2025-01-06T12:00:00")

	moved, err := f.scheduler.Update(ctx, a.ID, &UpdateAppointmentRequest{Start: ptr("2025-01-06T09:30:00"), End: ptr("2025-01-06T10:30:00")})
	require.NoError(t, err)
	assert.Equal(t, 9, moved.Start.Hour())

	_, err = f.scheduler.Update(ctx, a.ID, &UpdateAppointmentRequest{End: ptr("2025-01-06T11:30:00")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.scheduler.Update(ctx, a.ID, &UpdateAppointmentRequest{Status: ptr("rescheduled")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReactivatingCancelledAppointmentIsChecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")
	require.NoError(t, f.scheduler.Cancel(ctx, a.ID))
	f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")

	_, err := f.scheduler.Update(ctx, a.ID, &UpdateAppointmentRequest{Status: ptr("scheduled")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookWithServiceFillsEndAndRevenue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, err := f.services.Create(ctx, &catalog.CreateServiceRequest{ProviderID: f.provider.ID, Name: "Botox", DurationMinutes: 45, Price: 300})
	require.NoError(t, err)

	req := f.request("2025-01-06T10:00:00", "")
	req.ServiceID = &svc.ID
	a, err := f.scheduler.Book(ctx, req, SourceAPI)
	require.NoError(t, err)
	assert.True(t, a.End.Equal(time.Date(2025, 1, 6, 10, 45, 0, 0, time.UTC)))
	require.NotNil(t, a.Revenue)
	assert.Equal(t, 300.0, *a.Revenue)
	assert.Equal(t, "Botox", a.ServiceType)

	req = f.request("2025-01-06T11:00:00", "")
	req.ServiceID = &svc.ID
	req.Revenue = ptr(250.0)
	a, err = f.scheduler.Book(ctx, req, SourceAPI)
	require.NoError(t, err)
	assert.Equal(t, 250.0, *a.Revenue)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateAppointmentRequest
		want error
	}{
		{"unknown provider", &CreateAppointmentRequest{ProviderID: uuid.New(), ClientID: f.client.ID, Start: "2025-01-06T10:00:00", End: "2025-01-06T11:00:00"}, providers.ErrProviderNotFound},
		{"unknown client", &CreateAppointmentRequest{ProviderID: f.provider.ID, ClientID: uuid.New(), Start: "2025-01-06T10:00:00", End: "2025-01-06T11:00:00"}, clients.ErrClientNotFound},
		{"missing client", &CreateAppointmentRequest{ProviderID: f.provider.ID, Start: "2025-01-06T10:00:00", End: "2025-01-06T11:00:00"}, ErrMissingParticipant},
		{"reversed", f.request("2025-01-06T11:00:00", "2025-01-06T10:00:00"), availability.ErrInvalidInterval},
		{"empty", f.request("2025-01-06T10:00:00", "2025-01-06T10:00:00"), availability.ErrInvalidInterval},
		{"no end without service", f.request("2025-01-06T10:00:00", ""), ErrInvalidTime},
		{"unknown service", &CreateAppointmentRequest{ProviderID: f.provider.ID, ClientID: f.client.ID, ServiceID: ptr(uuid.New()), Start: "2025-01-06T10:00:00"}, catalog.ErrServiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.scheduler.Book(ctx, tt.req, SourceAPI)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAvailabilityReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lunchBlock(t)
	f.book(t, "2025-01-13T09:00:00", "2025-01-13T10:00:00")

	day := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	report, err := f.scheduler.Availability(ctx, day, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-13", report.Date)
	assert.Equal(t, 60, report.DurationMinutes)
	require.Len(t, report.Providers, 1)

	entry := report.Providers[0]
	assert.Equal(t, 1, entry.AppointmentCount)
	starts := make([]string, 0, len(entry.AvailableSlots))
	for _, s := range entry.AvailableSlots {
		starts = append(starts, s.Start)
	}
	assert.Equal(t, []string{"10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}, starts)

	report, err = f.scheduler.Availability(ctx, day, time.Hour, ptr(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, report.Providers)

	_, err = f.scheduler.Availability(ctx, day, 0, nil)
	assert.ErrorIs(t, err, availability.ErrInvalidDuration)
}

func TestListResolvesDisplayFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2025-01-06T10:00:00", "2025-01-06T11:00:00")

	views, err := f.scheduler.List(ctx, ListFilter{ClientID: &f.client.ID})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Maya Katz", views[0].Title)
	assert.Equal(t, "Dr. Cohen", views[0].ProviderName)
	assert.Equal(t, providers.DefaultColor, views[0].Color)
	assert.Equal(t, StatusScheduled, views[0].ExtendedProps.Status)

	views, err = f.scheduler.List(ctx, ListFilter{Status: StatusCancelled})
	require.NoError(t, err)
	assert.Empty(t, views)
}
