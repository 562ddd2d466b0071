package blockedtimes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "time/tzdata"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

func TestSourceFeedsChecker(t *testing.T) {
	repo := NewInMemoryRepository()
	provider := uuid.New()
	ctx := context.Background()

	_, err := repo.Create(ctx, &BlockedTime{
		ProviderID:        provider,
		Start:             time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC),
		BlockType:         BlockLunch,
		IsRecurring:       true,
		RecurrencePattern: availability.PatternWeekly,
		IsActive:          true,
	})
	require.NoError(t, err)
	inactive, err := repo.Create(ctx, &BlockedTime{
		ProviderID: provider,
		Start:      time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC),
		BlockType:  BlockMeeting,
		IsActive:   true,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, inactive.ID))

	window := availability.Interval{
		Start: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
	}
	blocks, err := NewSource(repo).ListBlocks(ctx, provider, window)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, availability.PatternWeekly, blocks[0].Pattern)
	assert.Equal(t, "lunch", blocks[0].Type)
}

func TestFilterSkipsExpiredSeries(t *testing.T) {
	until := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	b := &BlockedTime{
		Start:             time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC),
		IsRecurring:       true,
		RecurrencePattern: availability.PatternDaily,
		RecurrenceEndDate: &until,
		IsActive:          true,
	}
	later := availability.Interval{Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)}
	assert.False(t, ListFilter{Window: &later}.matches(b))

	lastDay := availability.Interval{Start: until, End: until.AddDate(0, 0, 1)}
	assert.True(t, ListFilter{Window: &lastDay}.matches(b))

	before := availability.Interval{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.False(t, ListFilter{Window: &before}.matches(b))
}

func TestExpandInClinicTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 12:00 New York in winter.
	row := &BlockedTime{
		ID:                uuid.New(),
		Start:             time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC),
		BlockType:         BlockLunch,
		IsRecurring:       true,
		RecurrencePattern: availability.PatternWeekly,
		IsActive:          true,
	}
	window := availability.Interval{
		Start: time.Date(2025, 3, 10, 0, 0, 0, 0, loc),
		End:   time.Date(2025, 3, 11, 0, 0, 0, 0, loc),
	}
	got := Expand([]*BlockedTime{row}, window, loc)
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].Start.Hour(), "wall clock kept after the DST change")
	assert.Equal(t, row.ID, got[0].ID)
	assert.True(t, got[0].SeriesStart.Equal(row.Start))
}

type openDirectory struct{}

func (openDirectory) ProviderWorkingHours(context.Context, uuid.UUID) (string, error) {
	return "00:00-23:59", nil
}

type noAppointments struct{}

func (noAppointments) ListBusy(context.Context, uuid.UUID, availability.Interval) ([]availability.Busy, error) {
	return nil, nil
}

func TestSourceKeepsLastMultiDayOccurrence(t *testing.T) {
	repo := NewInMemoryRepository()
	provider := uuid.New()
	ctx := context.Background()

	until := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	_, err := repo.Create(ctx, &BlockedTime{
		ProviderID:        provider,
		Start:             time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		End:               time.Date(2026, 1, 7, 17, 0, 0, 0, time.UTC),
		BlockType:         BlockVacation,
		IsRecurring:       true,
		RecurrencePattern: availability.PatternWeekly,
		RecurrenceEndDate: &until,
		IsActive:          true,
	})
	require.NoError(t, err)

	checker := availability.NewChecker(openDirectory{}, noAppointments{}, NewSource(repo))
	check := func(start, end time.Time) bool {
		verdict, err := checker.Check(ctx, availability.Request{ProviderID: provider, Start: start, End: end})
		require.NoError(t, err)
		return verdict.Free
	}

	assert.False(t, check(time.Date(2026, 1, 21, 14, 0, 0, 0, time.UTC), time.Date(2026, 1, 21, 15, 0, 0, 0, time.UTC)), "tail of the last occurrence")
	assert.True(t, check(time.Date(2026, 1, 28, 14, 0, 0, 0, time.UTC), time.Date(2026, 1, 28, 15, 0, 0, 0, time.UTC)), "series ended")
}

func TestFilterKeepsSeriesReachingWindow(t *testing.T) {
	until := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		span   time.Duration
		window time.Time
		want   bool
	}{
		{name: "one hour block on end date", span: time.Hour, window: time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC), want: true},
		{name: "one hour block long after", span: time.Hour, window: time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC), want: false},
		{name: "multi-day block in its tail", span: 56 * time.Hour, window: time.Date(2026, 1, 21, 14, 0, 0, 0, time.UTC), want: true},
		{name: "multi-day block after its tail", span: 56 * time.Hour, window: time.Date(2026, 1, 28, 14, 0, 0, 0, time.UTC), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
			b := &BlockedTime{
				Start:             start,
				End:               start.Add(tt.span),
				IsRecurring:       true,
				RecurrencePattern: availability.PatternWeekly,
				RecurrenceEndDate: &until,
				IsActive:          true,
			}
			window := availability.Interval{Start: tt.window, End: tt.window.Add(time.Hour)}
			assert.Equal(t, tt.want, ListFilter{Window: &window}.matches(b))
		})
	}
}
