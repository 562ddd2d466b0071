package availability

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pattern is how a blocked-time entry repeats.
type Pattern string

const (
	PatternNone    Pattern = ""
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

// ParsePattern normalizes a stored or user-supplied pattern.
func ParsePattern(raw string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(raw))); p {
	case PatternNone, PatternDaily, PatternWeekly, PatternMonthly:
		return p, nil
	default:
		return PatternNone, ErrInvalidPattern
	}
}

// Block is a provider-unavailable window, optionally repeating.
type Block struct {
	ID      uuid.UUID
	Start   time.Time
	End     time.Time
	Type    string
	Reason  string
	Pattern Pattern
	// RecurrenceEnd is the last calendar date an occurrence may start on,
	// read in its own location since DATE columns decode as UTC midnight.
	// Nil repeats forever.
	RecurrenceEnd *time.Time
}

// Recurring reports whether the block repeats.
func (b Block) Recurring() bool {
	return b.Pattern != PatternNone
}

// Expand returns every occurrence of b that overlaps window, in ascending
// order. Recurring blocks keep the wall-clock start and end of the stored
// entry, evaluated in the location of b.Start, so a 12:00 lunch stays at
// 12:00 across DST changes. Occurrences never precede the stored entry.
func Expand(b Block, window Interval) []Interval {
	if !b.End.After(b.Start) || !window.End.After(window.Start) {
		return nil
	}
	if !b.Recurring() {
		base := Interval{Start: b.Start, End: b.End}
		if base.Overlaps(window) {
			return []Interval{base}
		}
		return nil
	}

	loc := b.Start.Location()
	start := b.Start
	end := b.End.In(loc)
	spanDays := civilDays(start, end)
	sh, sm, ss := start.Clock()
	eh, em, es := end.Clock()

	var limit time.Time
	if b.RecurrenceEnd != nil {
		ry, rm, rd := b.RecurrenceEnd.Date()
		limit = time.Date(ry, rm, rd+1, 0, 0, 0, 0, loc)
	}

	ay, am, ad := start.Date()
	occurrence := func(k int) (Interval, bool) {
		y, m, d := ay, am, ad
		switch b.Pattern {
		case PatternDaily:
			d += k
		case PatternWeekly:
			d += 7 * k
		case PatternMonthly:
			m += time.Month(k)
			if time.Date(y, m, d, 0, 0, 0, 0, loc).Day() != ad {
				return Interval{}, false
			}
		}
		occStart := time.Date(y, m, d, sh, sm, ss, start.Nanosecond(), loc)
		occEnd := time.Date(y, m, d+spanDays, eh, em, es, end.Nanosecond(), loc)
		if !occEnd.After(occStart) {
			return Interval{}, false
		}
		return Interval{Start: occStart, End: occEnd}, true
	}

	var out []Interval
	for k := firstIndex(b.Pattern, start, window.Start.In(loc), spanDays); ; k++ {
		occ, ok := occurrence(k)
		if !ok {
			// Month without the anchor day. The start still advances, so
			// check the bounds on the first of that month.
			probe := time.Date(ay, am+time.Month(k), 1, sh, sm, ss, 0, loc)
			if !probe.Before(window.End) || (!limit.IsZero() && !probe.Before(limit)) {
				break
			}
			continue
		}
		if !occ.Start.Before(window.End) {
			break
		}
		if !limit.IsZero() && !occ.Start.Before(limit) {
			break
		}
		if occ.Overlaps(window) {
			out = append(out, occ)
		}
	}
	return out
}

// firstIndex skips occurrences that end well before the window starts.
func firstIndex(p Pattern, anchor, windowStart time.Time, spanDays int) int {
	days := civilDays(anchor, windowStart) - spanDays - 1
	if days <= 0 {
		return 0
	}
	switch p {
	case PatternDaily:
		return days
	case PatternWeekly:
		return days / 7
	case PatternMonthly:
		ay, am, _ := anchor.Date()
		wy, wm, _ := windowStart.Date()
		months := (wy-ay)*12 + int(wm-am) - spanDays/28 - 2
		if months < 0 {
			return 0
		}
		return months
	}
	return 0
}

// civilDays counts calendar days from a's date to b's date, ignoring clock time.
func civilDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
