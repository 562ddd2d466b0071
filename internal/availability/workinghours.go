package availability

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWorkingHours applies when a provider has none configured.
const DefaultWorkingHours = "09:00-17:00"

// WorkingHours is a daily open window expressed as minutes after midnight.
type WorkingHours struct {
	StartMinute int
	EndMinute   int
}

// ParseWorkingHours parses "HH:MM-HH:MM". An empty string yields the default.
func ParseWorkingHours(raw string) (WorkingHours, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultWorkingHours
	}
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return WorkingHours{}, ErrInvalidWorkingHours
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return WorkingHours{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return WorkingHours{}, err
	}
	if end <= start {
		return WorkingHours{}, ErrInvalidWorkingHours
	}
	return WorkingHours{StartMinute: start, EndMinute: end}, nil
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWorkingHours, raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// On returns the working window on day's calendar date (as read in day's own
// location) with clock times in loc.
func (w WorkingHours) On(day time.Time, loc *time.Location) Interval {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return Interval{
		Start: time.Date(y, m, d, w.StartMinute/60, w.StartMinute%60, 0, 0, loc),
		End:   time.Date(y, m, d, w.EndMinute/60, w.EndMinute%60, 0, 0, loc),
	}
}

// Hours is the length of the working window in hours.
func (w WorkingHours) Hours() float64 {
	return float64(w.EndMinute-w.StartMinute) / 60
}

func (w WorkingHours) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartMinute/60, w.StartMinute%60, w.EndMinute/60, w.EndMinute%60)
}
