package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-crm/internal/observability/metrics"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

var availabilityTracer = otel.Tracer("crm.internal.availability")

// DefaultWindowPadding bounds the appointment query around a candidate.
const DefaultWindowPadding = 24 * time.Hour

// ProviderDirectory resolves a provider's configured working hours.
// Implementations return ErrProviderNotFound for unknown ids.
type ProviderDirectory interface {
	ProviderWorkingHours(ctx context.Context, providerID uuid.UUID) (string, error)
}

// AppointmentLister returns the provider's non-cancelled appointments
// intersecting window.
type AppointmentLister interface {
	ListBusy(ctx context.Context, providerID uuid.UUID, window Interval) ([]Busy, error)
}

// BlockLister returns the provider's active blocked-time entries that may
// produce an occurrence inside window. Returning extra entries is harmless.
type BlockLister interface {
	ListBlocks(ctx context.Context, providerID uuid.UUID, window Interval) ([]Block, error)
}

// Busy is an existing appointment occupying provider time.
type Busy struct {
	ID       uuid.UUID
	Title    string
	Interval Interval
}

// ConflictKind says what kind of entry a candidate collided with.
type ConflictKind string

const (
	ConflictAppointment ConflictKind = "appointment"
	ConflictBlockedTime ConflictKind = "blocked_time"
)

// Conflict describes one overlap found for a candidate interval.
type Conflict struct {
	Kind     ConflictKind `json:"kind"`
	ID       uuid.UUID    `json:"id"`
	Interval Interval     `json:"interval"`
	Reason   string       `json:"reason"`
}

// Verdict is the result of a free check.
type Verdict struct {
	Free      bool       `json:"free"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Request is a candidate booking to check.
type Request struct {
	ProviderID uuid.UUID
	Start      time.Time
	End        time.Time
	// ExcludeAppointmentID skips the appointment being edited.
	ExcludeAppointmentID *uuid.UUID
}

// SlotQuery asks for bookable slots on one calendar date.
type SlotQuery struct {
	ProviderID uuid.UUID
	Date       time.Time
	Duration   time.Duration
	// Step defaults to Duration.
	Step time.Duration
}

// DayFreeTime summarises one working day for a provider.
type DayFreeTime struct {
	Date         time.Time
	Working      Interval
	Busy         []Interval
	Free         []Interval
	FreeHours    float64
	WorkingHours float64
	Appointments int
}

// Option configures a Checker.
type Option func(*Checker)

// WithLocation sets the zone used for working hours and recurrence.
func WithLocation(loc *time.Location) Option {
	return func(c *Checker) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithWindowPadding widens the appointment query around each candidate.
func WithWindowPadding(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.padding = d
		}
	}
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(c *Checker) { c.metrics = m }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Checker decides whether a provider is free for a candidate interval.
type Checker struct {
	providers    ProviderDirectory
	appointments AppointmentLister
	blocks       BlockLister
	loc          *time.Location
	padding      time.Duration
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
}

// NewChecker wires the checker to its read sources.
func NewChecker(providers ProviderDirectory, appointments AppointmentLister, blocks BlockLister, opts ...Option) *Checker {
	if providers == nil || appointments == nil || blocks == nil {
		panic("availability: provider, appointment and block sources required")
	}
	c := &Checker{
		providers:    providers,
		appointments: appointments,
		blocks:       blocks,
		loc:          time.UTC,
		padding:      DefaultWindowPadding,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location is the zone working hours and recurrences are evaluated in.
func (c *Checker) Location() *time.Location {
	return c.loc
}

// Check reports whether the provider is free for [req.Start, req.End).
func (c *Checker) Check(ctx context.Context, req Request) (Verdict, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("crm.provider_id", req.ProviderID.String()),
		attribute.String("crm.start", req.Start.UTC().Format(time.RFC3339)),
		attribute.String("crm.end", req.End.UTC().Format(time.RFC3339)),
	)
	started := time.Now()
	defer func() { c.metrics.ObserveCheckLatency("check", time.Since(started).Seconds()) }()

	candidate, err := NewInterval(req.Start, req.End)
	if err != nil {
		c.metrics.ObserveCheck("invalid")
		return Verdict{}, err
	}
	if _, err := c.providers.ProviderWorkingHours(ctx, req.ProviderID); err != nil {
		span.RecordError(err)
		c.metrics.ObserveCheck("error")
		return Verdict{}, err
	}

	snap, err := c.load(ctx, req.ProviderID, candidate.Pad(c.padding))
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveCheck("error")
		return Verdict{}, err
	}

	verdict := snap.verdict(candidate, req.ExcludeAppointmentID)
	outcome := "free"
	if !verdict.Free {
		outcome = "conflict"
	}
	span.SetAttributes(attribute.Bool("crm.free", verdict.Free), attribute.Int("crm.conflicts", len(verdict.Conflicts)))
	c.metrics.ObserveCheck(outcome)
	c.logger.Debug("availability checked",
		"provider_id", req.ProviderID,
		"start", candidate.Start,
		"end", candidate.End,
		"free", verdict.Free,
		"conflicts", len(verdict.Conflicts),
	)
	return verdict, nil
}

// FindSlots walks the provider's working hours on q.Date in steps and
// returns every slot of q.Duration that passes the free check.
func (c *Checker) FindSlots(ctx context.Context, q SlotQuery) ([]Interval, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.find_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("crm.provider_id", q.ProviderID.String()),
		attribute.String("crm.date", q.Date.Format(time.DateOnly)),
		attribute.Int64("crm.duration_minutes", int64(q.Duration/time.Minute)),
	)
	started := time.Now()
	defer func() { c.metrics.ObserveCheckLatency("slots", time.Since(started).Seconds()) }()

	if q.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	step := q.Step
	if step <= 0 {
		step = q.Duration
	}

	hours, err := c.workingHours(ctx, q.ProviderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	working := hours.On(q.Date, c.loc)

	snap, err := c.load(ctx, q.ProviderID, working.Pad(c.padding))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var slots []Interval
	for start := working.Start; !start.Add(q.Duration).After(working.End); start = start.Add(step) {
		candidate := Interval{Start: start, End: start.Add(q.Duration)}
		if snap.free(candidate, nil) {
			slots = append(slots, candidate)
		}
	}
	span.SetAttributes(attribute.Int("crm.slots", len(slots)))
	return slots, nil
}

// FreeTime summarises the provider's working day on date: the merged busy
// intervals inside working hours and the gaps between them.
func (c *Checker) FreeTime(ctx context.Context, providerID uuid.UUID, date time.Time) (DayFreeTime, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.free_time")
	defer span.End()

	hours, err := c.workingHours(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return DayFreeTime{}, err
	}
	working := hours.On(date, c.loc)
	snap, err := c.load(ctx, providerID, working.Pad(c.padding))
	if err != nil {
		span.RecordError(err)
		return DayFreeTime{}, err
	}

	var busy []Interval
	appointments := 0
	for _, b := range snap.busy {
		if clipped, ok := b.Interval.Clip(working); ok {
			busy = append(busy, clipped)
			appointments++
		}
	}
	for _, occ := range snap.blocked {
		if clipped, ok := occ.interval.Clip(working); ok {
			busy = append(busy, clipped)
		}
	}
	busy = Merge(busy)

	var free []Interval
	cursor := working.Start
	var busyDur time.Duration
	for _, b := range busy {
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
		busyDur += b.Duration()
	}
	if working.End.After(cursor) {
		free = append(free, Interval{Start: cursor, End: working.End})
	}

	freeDur := working.Duration() - busyDur
	return DayFreeTime{
		Date:         working.Start,
		Working:      working,
		Busy:         busy,
		Free:         free,
		FreeHours:    freeDur.Hours(),
		WorkingHours: working.Duration().Hours(),
		Appointments: appointments,
	}, nil
}

// Occurrences expands the provider's blocked times inside window.
func (c *Checker) Occurrences(ctx context.Context, providerID uuid.UUID, window Interval) ([]Conflict, error) {
	blocks, err := c.blocks.ListBlocks(ctx, providerID, window)
	if err != nil {
		return nil, fmt.Errorf("availability: list blocks: %w", err)
	}
	var out []Conflict
	for _, occ := range c.expand(blocks, window) {
		out = append(out, Conflict{Kind: ConflictBlockedTime, ID: occ.block.ID, Interval: occ.interval, Reason: describeBlock(occ.block)})
	}
	return out, nil
}

func (c *Checker) workingHours(ctx context.Context, providerID uuid.UUID) (WorkingHours, error) {
	raw, err := c.providers.ProviderWorkingHours(ctx, providerID)
	if err != nil {
		return WorkingHours{}, err
	}
	hours, err := ParseWorkingHours(raw)
	if err != nil {
		c.logger.Warn("invalid working hours, using default", "provider_id", providerID, "working_hours", raw)
		hours, _ = ParseWorkingHours(DefaultWorkingHours)
	}
	return hours, nil
}

type occurrence struct {
	block    Block
	interval Interval
}

type snapshot struct {
	busy    []Busy
	blocked []occurrence
}

func (c *Checker) load(ctx context.Context, providerID uuid.UUID, window Interval) (*snapshot, error) {
	busy, err := c.appointments.ListBusy(ctx, providerID, window)
	if err != nil {
		return nil, fmt.Errorf("availability: list appointments: %w", err)
	}
	blocks, err := c.blocks.ListBlocks(ctx, providerID, window)
	if err != nil {
		return nil, fmt.Errorf("availability: list blocks: %w", err)
	}
	return &snapshot{busy: busy, blocked: c.expand(blocks, window)}, nil
}

func (c *Checker) expand(blocks []Block, window Interval) []occurrence {
	var out []occurrence
	for _, b := range blocks {
		local := b
		local.Start = b.Start.In(c.loc)
		local.End = b.End.In(c.loc)
		for _, iv := range Expand(local, window) {
			out = append(out, occurrence{block: b, interval: iv})
		}
	}
	return out
}

func (s *snapshot) free(candidate Interval, exclude *uuid.UUID) bool {
	for _, b := range s.busy {
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if b.Interval.Overlaps(candidate) {
			return false
		}
	}
	for _, occ := range s.blocked {
		if occ.interval.Overlaps(candidate) {
			return false
		}
	}
	return true
}

func (s *snapshot) verdict(candidate Interval, exclude *uuid.UUID) Verdict {
	var conflicts []Conflict
	for _, b := range s.busy {
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if b.Interval.Overlaps(candidate) {
			reason := "existing appointment"
			if b.Title != "" {
				reason = "existing appointment: " + b.Title
			}
			conflicts = append(conflicts, Conflict{Kind: ConflictAppointment, ID: b.ID, Interval: b.Interval, Reason: reason})
		}
	}
	for _, occ := range s.blocked {
		if occ.interval.Overlaps(candidate) {
			conflicts = append(conflicts, Conflict{Kind: ConflictBlockedTime, ID: occ.block.ID, Interval: occ.interval, Reason: describeBlock(occ.block)})
		}
	}
	return Verdict{Free: len(conflicts) == 0, Conflicts: conflicts}
}

func describeBlock(b Block) string {
	kind := b.Type
	if kind == "" {
		kind = "other"
	}
	if b.Reason != "" {
		return "blocked (" + kind + "): " + b.Reason
	}
	return "blocked (" + kind + ")"
}
