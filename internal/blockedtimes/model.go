package blockedtimes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
)

// BlockType classifies why the provider is unavailable.
type BlockType string

const (
	BlockLunch    BlockType = "lunch"
	BlockBreak    BlockType = "break"
	BlockMeeting  BlockType = "meeting"
	BlockVacation BlockType = "vacation"
	BlockSick     BlockType = "sick"
	BlockPersonal BlockType = "personal"
	BlockOther    BlockType = "other"
)

// ParseBlockType normalizes raw; empty means other.
func ParseBlockType(raw string) (BlockType, error) {
	switch t := BlockType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return BlockOther, nil
	case BlockLunch, BlockBreak, BlockMeeting, BlockVacation, BlockSick, BlockPersonal, BlockOther:
		return t, nil
	default:
		return "", ErrInvalidBlockType
	}
}

// BlockedTime is a stored provider-unavailable window.
type BlockedTime struct {
	ID                uuid.UUID            `json:"id"`
	ProviderID        uuid.UUID            `json:"providerId"`
	Start             time.Time            `json:"start"`
	End               time.Time            `json:"end"`
	BlockType         BlockType            `json:"blockType"`
	Reason            string               `json:"reason"`
	IsRecurring       bool                 `json:"isRecurring"`
	RecurrencePattern availability.Pattern `json:"recurrencePattern"`
	RecurrenceEndDate *time.Time           `json:"recurrenceEndDate"`
	IsActive          bool                 `json:"isActive"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// Block converts the row into the checker's representation.
func (b *BlockedTime) Block() availability.Block {
	pattern := availability.PatternNone
	if b.IsRecurring {
		pattern = b.RecurrencePattern
	}
	return availability.Block{
		ID:            b.ID,
		Start:         b.Start,
		End:           b.End,
		Type:          string(b.BlockType),
		Reason:        b.Reason,
		Pattern:       pattern,
		RecurrenceEnd: b.RecurrenceEndDate,
	}
}

// Occurrence is one concrete instance of a blocked time, as listed to the calendar.
type Occurrence struct {
	BlockedTime
	// SeriesStart is the stored anchor start; edits target the whole series.
	SeriesStart time.Time `json:"seriesStart"`
}

// CreateBlockedTimeRequest is the body of POST /api/blocked-times. Times
// without an offset are read in the configured timezone.
type CreateBlockedTimeRequest struct {
	ProviderID        uuid.UUID `json:"provider_id"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	BlockType         string    `json:"block_type"`
	Reason            string    `json:"reason"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern"`
	RecurrenceEndDate string    `json:"recurrence_end_date"`
}

// Resolve validates the request and builds the row it describes.
func (r *CreateBlockedTimeRequest) Resolve(loc *time.Location) (*BlockedTime, error) {
	if r.ProviderID == uuid.Nil {
		return nil, ErrMissingProvider
	}
	start, err := parseTime(r.StartTime, loc)
	if err != nil {
		return nil, err
	}
	end, err := parseTime(r.EndTime, loc)
	if err != nil {
		return nil, err
	}
	if _, err := availability.NewInterval(start, end); err != nil {
		return nil, err
	}
	blockType, err := ParseBlockType(r.BlockType)
	if err != nil {
		return nil, err
	}
	pattern, until, err := resolveRecurrence(r.IsRecurring, r.RecurrencePattern, r.RecurrenceEndDate, loc)
	if err != nil {
		return nil, err
	}
	return &BlockedTime{
		ProviderID:        r.ProviderID,
		Start:             start.UTC(),
		End:               end.UTC(),
		BlockType:         blockType,
		Reason:            strings.TrimSpace(r.Reason),
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: pattern,
		RecurrenceEndDate: until,
		IsActive:          true,
	}, nil
}

// UpdateBlockedTimeRequest is a partial update; nil fields are left unchanged.
type UpdateBlockedTimeRequest struct {
	StartTime         *string `json:"start_time"`
	EndTime           *string `json:"end_time"`
	BlockType         *string `json:"block_type"`
	Reason            *string `json:"reason"`
	IsRecurring       *bool   `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern"`
	RecurrenceEndDate *string `json:"recurrence_end_date"`
	IsActive          *bool   `json:"is_active"`
}

// Apply validates the present fields and copies them onto b.
func (r *UpdateBlockedTimeRequest) Apply(b *BlockedTime, loc *time.Location) error {
	next := *b
	if r.StartTime != nil {
		t, err := parseTime(*r.StartTime, loc)
		if err != nil {
			return err
		}
		next.Start = t.UTC()
	}
	if r.EndTime != nil {
		t, err := parseTime(*r.EndTime, loc)
		if err != nil {
			return err
		}
		next.End = t.UTC()
	}
	if _, err := availability.NewInterval(next.Start, next.End); err != nil {
		return err
	}
	if r.BlockType != nil {
		t, err := ParseBlockType(*r.BlockType)
		if err != nil {
			return err
		}
		next.BlockType = t
	}
	if r.Reason != nil {
		next.Reason = strings.TrimSpace(*r.Reason)
	}
	if r.IsRecurring != nil {
		next.IsRecurring = *r.IsRecurring
	}
	rawPattern := string(next.RecurrencePattern)
	if r.RecurrencePattern != nil {
		rawPattern = *r.RecurrencePattern
	}
	rawUntil := ""
	if next.RecurrenceEndDate != nil {
		rawUntil = next.RecurrenceEndDate.Format(time.RFC3339)
	}
	if r.RecurrenceEndDate != nil {
		rawUntil = *r.RecurrenceEndDate
	}
	pattern, until, err := resolveRecurrence(next.IsRecurring, rawPattern, rawUntil, loc)
	if err != nil {
		return err
	}
	next.RecurrencePattern = pattern
	next.RecurrenceEndDate = until
	if r.IsActive != nil {
		next.IsActive = *r.IsActive
	}
	*b = next
	return nil
}

// ListFilter narrows List results. Only active entries are ever listed.
// With a window, one-off entries must overlap it and recurring entries must
// start before it ends and have a last occurrence that could reach it.
type ListFilter struct {
	ProviderID *uuid.UUID
	Window     *availability.Interval
}

func (f ListFilter) matches(b *BlockedTime) bool {
	if !b.IsActive {
		return false
	}
	if f.ProviderID != nil && b.ProviderID != *f.ProviderID {
		return false
	}
	if f.Window == nil {
		return true
	}
	if !b.IsRecurring {
		return b.Start.Before(f.Window.End) && f.Window.Start.Before(b.End)
	}
	if !b.Start.Before(f.Window.End) {
		return false
	}
	if b.RecurrenceEndDate == nil {
		return true
	}
	// The last occurrence starts on the end date and runs for the block's
	// span. Two days of slack covers the end date being read in any zone.
	cutoff := f.Window.Start.Add(-b.End.Sub(b.Start)).AddDate(0, 0, -2)
	return !b.RecurrenceEndDate.Before(cutoff)
}

func resolveRecurrence(recurring bool, rawPattern, rawUntil string, loc *time.Location) (availability.Pattern, *time.Time, error) {
	if !recurring {
		return availability.PatternNone, nil, nil
	}
	pattern, err := availability.ParsePattern(rawPattern)
	if err != nil {
		return availability.PatternNone, nil, err
	}
	if pattern == availability.PatternNone {
		return availability.PatternNone, nil, ErrMissingPattern
	}
	if strings.TrimSpace(rawUntil) == "" {
		return pattern, nil, nil
	}
	until, err := parseTime(rawUntil, loc)
	if err != nil {
		return availability.PatternNone, nil, err
	}
	return pattern, &until, nil
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%w: value required", ErrInvalidTime)
	}
	t, err := httpjson.ParseTime(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return t, nil
}
