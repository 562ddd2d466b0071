package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.January, 5, hour, minute, 0, 0, time.UTC)
}

func TestNewIntervalRejectsEmptyAndReversed(t *testing.T) {
	_, err := NewInterval(at(10, 0), at(10, 0))
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(11, 0), at(10, 0))
	require.ErrorIs(t, err, ErrInvalidInterval)

	iv, err := NewInterval(at(10, 0), at(10, 30))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, iv.Duration())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	existing := Interval{Start: at(10, 0), End: at(10, 30)}

	tests := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"abutting after", Interval{Start: at(10, 30), End: at(11, 0)}, false},
		{"abutting before", Interval{Start: at(9, 0), End: at(10, 0)}, false},
		{"partial overlap", Interval{Start: at(10, 15), End: at(10, 45)}, true},
		{"contained", Interval{Start: at(10, 5), End: at(10, 10)}, true},
		{"containing", Interval{Start: at(9, 0), End: at(11, 0)}, true},
		{"identical", existing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existing.Overlaps(tt.candidate))
			assert.Equal(t, tt.want, tt.candidate.Overlaps(existing))
		})
	}
}

func TestMergeJoinsOverlappingAndTouching(t *testing.T) {
	merged := Merge([]Interval{
		{Start: at(13, 0), End: at(14, 0)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(9, 30), End: at(9, 45)},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, Interval{Start: at(9, 0), End: at(10, 30)}, merged[0])
	assert.Equal(t, Interval{Start: at(13, 0), End: at(14, 0)}, merged[1])
	assert.Nil(t, Merge(nil))
}

func TestClip(t *testing.T) {
	bounds := Interval{Start: at(9, 0), End: at(17, 0)}

	clipped, ok := Interval{Start: at(8, 0), End: at(9, 30)}.Clip(bounds)
	require.True(t, ok)
	assert.Equal(t, Interval{Start: at(9, 0), End: at(9, 30)}, clipped)

	_, ok = Interval{Start: at(17, 0), End: at(18, 0)}.Clip(bounds)
	assert.False(t, ok)
}
