package availability

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour, minute int) time.Time {
	return time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
}

func TestParsePattern(t *testing.T) {
	for raw, want := range map[string]Pattern{
		"":         PatternNone,
		"daily":    PatternDaily,
		" Weekly ": PatternWeekly,
		"MONTHLY":  PatternMonthly,
	} {
		got, err := ParsePattern(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParsePattern("yearly")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestExpandOneOffBlock(t *testing.T) {
	block := Block{ID: uuid.New(), Start: day(2026, 1, 10, 0, 0), End: day(2026, 1, 14, 0, 0)}

	got := Expand(block, Interval{Start: day(2026, 1, 12, 0, 0), End: day(2026, 1, 13, 0, 0)})
	require.Len(t, got, 1)
	assert.Equal(t, block.Start, got[0].Start)
	assert.Equal(t, block.End, got[0].End)

	assert.Empty(t, Expand(block, Interval{Start: day(2026, 1, 14, 0, 0), End: day(2026, 1, 15, 0, 0)}))
}

func TestExpandDaily(t *testing.T) {
	block := Block{Start: day(2026, 1, 5, 12, 0), End: day(2026, 1, 5, 13, 0), Pattern: PatternDaily}

	got := Expand(block, Interval{Start: day(2026, 2, 1, 0, 0), End: day(2026, 2, 4, 0, 0)})
	require.Len(t, got, 3)
	for i, occ := range got {
		assert.Equal(t, day(2026, 2, 1+i, 12, 0), occ.Start)
		assert.Equal(t, day(2026, 2, 1+i, 13, 0), occ.End)
	}
}

func TestExpandNeverPrecedesAnchor(t *testing.T) {
	block := Block{Start: day(2026, 1, 5, 12, 0), End: day(2026, 1, 5, 13, 0), Pattern: PatternDaily}
	assert.Empty(t, Expand(block, Interval{Start: day(2025, 12, 1, 0, 0), End: day(2026, 1, 5, 12, 0)}))
}

func TestExpandWeeklyStopsAtInclusiveRecurrenceEnd(t *testing.T) {
	until := day(2026, 2, 2, 0, 0)
	block := Block{
		Start:         day(2026, 1, 5, 12, 0),
		End:           day(2026, 1, 5, 13, 0),
		Pattern:       PatternWeekly,
		RecurrenceEnd: &until,
	}

	got := Expand(block, Interval{Start: day(2026, 1, 1, 0, 0), End: day(2026, 3, 1, 0, 0)})
	require.Len(t, got, 5)
	assert.Equal(t, day(2026, 1, 5, 12, 0), got[0].Start)
	assert.Equal(t, day(2026, 2, 2, 12, 0), got[4].Start)
	for _, occ := range got {
		assert.Equal(t, time.Monday, occ.Start.Weekday())
	}
}

func TestExpandRecurrenceEndIsCivilDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	tests := []struct {
		name     string
		loc      *time.Location
		until    time.Time
		wantLast time.Time
	}{
		{
			name:     "utc midnight west of utc",
			loc:      ny,
			until:    time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
			wantLast: time.Date(2026, 2, 2, 12, 0, 0, 0, ny),
		},
		{
			name:     "utc midnight east of utc",
			loc:      tokyo,
			until:    time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
			wantLast: time.Date(2026, 2, 2, 12, 0, 0, 0, tokyo),
		},
		{
			name:     "local midnight",
			loc:      ny,
			until:    time.Date(2026, 2, 2, 0, 0, 0, 0, ny),
			wantLast: time.Date(2026, 2, 2, 12, 0, 0, 0, ny),
		},
		{
			name:     "day before",
			loc:      ny,
			until:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			wantLast: time.Date(2026, 1, 26, 12, 0, 0, 0, ny),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			until := tt.until
			block := Block{
				Start:         time.Date(2026, 1, 5, 12, 0, 0, 0, tt.loc),
				End:           time.Date(2026, 1, 5, 13, 0, 0, 0, tt.loc),
				Pattern:       PatternWeekly,
				RecurrenceEnd: &until,
			}
			got := Expand(block, Interval{
				Start: time.Date(2026, 1, 20, 0, 0, 0, 0, tt.loc),
				End:   time.Date(2026, 3, 1, 0, 0, 0, 0, tt.loc),
			})
			require.NotEmpty(t, got)
			assert.True(t, got[len(got)-1].Start.Equal(tt.wantLast), "last occurrence %s", got[len(got)-1].Start)
		})
	}
}

func TestExpandMultiDayWeeklyLastOccurrence(t *testing.T) {
	until := day(2026, 1, 19, 0, 0)
	block := Block{
		Start:         day(2026, 1, 5, 9, 0),
		End:           day(2026, 1, 7, 17, 0),
		Pattern:       PatternWeekly,
		RecurrenceEnd: &until,
	}

	got := Expand(block, Interval{Start: day(2026, 1, 21, 14, 0), End: day(2026, 1, 21, 15, 0)})
	require.Len(t, got, 1)
	assert.Equal(t, day(2026, 1, 19, 9, 0), got[0].Start)
	assert.Equal(t, day(2026, 1, 21, 17, 0), got[0].End)

	assert.Empty(t, Expand(block, Interval{Start: day(2026, 1, 28, 14, 0), End: day(2026, 1, 28, 15, 0)}))
}

func TestExpandMonthlySkipsShortMonths(t *testing.T) {
	block := Block{Start: day(2026, 1, 31, 10, 0), End: day(2026, 1, 31, 11, 0), Pattern: PatternMonthly}

	got := Expand(block, Interval{Start: day(2026, 2, 1, 0, 0), End: day(2026, 6, 1, 0, 0)})
	require.Len(t, got, 2)
	assert.Equal(t, day(2026, 3, 31, 10, 0), got[0].Start)
	assert.Equal(t, day(2026, 5, 31, 10, 0), got[1].Start)
}

func TestExpandMonthlyFarFromAnchor(t *testing.T) {
	block := Block{Start: day(2020, 3, 15, 9, 0), End: day(2020, 3, 15, 9, 30), Pattern: PatternMonthly}

	got := Expand(block, Interval{Start: day(2026, 7, 1, 0, 0), End: day(2026, 8, 1, 0, 0)})
	require.Len(t, got, 1)
	assert.Equal(t, day(2026, 7, 15, 9, 0), got[0].Start)
}

func TestExpandOvernightBlockKeepsSpan(t *testing.T) {
	block := Block{Start: day(2026, 1, 5, 22, 0), End: day(2026, 1, 6, 2, 0), Pattern: PatternDaily}

	got := Expand(block, Interval{Start: day(2026, 1, 8, 0, 0), End: day(2026, 1, 8, 3, 0)})
	require.Len(t, got, 1)
	assert.Equal(t, day(2026, 1, 7, 22, 0), got[0].Start)
	assert.Equal(t, day(2026, 1, 8, 2, 0), got[0].End)
}

func TestExpandKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Mondays either side of the 2026-03-08 switch to daylight time.
	block := Block{
		Start:   time.Date(2026, 3, 2, 12, 0, 0, 0, ny),
		End:     time.Date(2026, 3, 2, 13, 0, 0, 0, ny),
		Pattern: PatternWeekly,
	}
	got := Expand(block, Interval{Start: time.Date(2026, 3, 9, 0, 0, 0, 0, ny), End: time.Date(2026, 3, 10, 0, 0, 0, 0, ny)})
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].Start.Hour())
	assert.Equal(t, 16, got[0].Start.UTC().Hour())
	assert.Equal(t, time.Hour, got[0].Duration())
}
