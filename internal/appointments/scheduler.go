package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/observability/metrics"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

var appointmentsTracer = otel.Tracer("crm.internal.appointments")

// Booking sources recorded on the bookings counter.
const (
	SourceAPI       = "api"
	SourceAssistant = "assistant"
)

// DefaultSlotMinutes is the slot length used when availability is queried
// without a duration.
const DefaultSlotMinutes = 30

// Scheduler books, edits and cancels appointments. Every write that can
// move an appointment onto the calendar goes through the availability
// checker under the provider's booking lock.
type Scheduler struct {
	repo      Repository
	checker   *availability.Checker
	providers providers.Repository
	clients   clients.Repository
	services  catalog.Repository
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMetrics records booking outcomes.
func WithMetrics(m *metrics.SchedulingMetrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(logger *logging.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler wires the booking workflow. services may be nil, in which
// case service_id is stored without lookups.
func NewScheduler(repo Repository, checker *availability.Checker, providerRepo providers.Repository, clientRepo clients.Repository, services catalog.Repository, opts ...SchedulerOption) *Scheduler {
	if repo == nil || checker == nil || providerRepo == nil || clientRepo == nil {
		panic("appointments: repository, checker, providers and clients are required")
	}
	s := &Scheduler{
		repo:      repo,
		checker:   checker,
		providers: providerRepo,
		clients:   clientRepo,
		services:  services,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone naive timestamps are read in.
func (s *Scheduler) Location() *time.Location {
	return s.checker.Location()
}

// Book validates req, checks the provider's calendar and stores the
// appointment. A busy calendar yields a *ConflictError.
func (s *Scheduler) Book(ctx context.Context, req *CreateAppointmentRequest, source string) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("crm.provider_id", req.ProviderID.String()),
		attribute.String("crm.source", source),
	)

	appt, err := s.resolveCreate(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(source, "invalid")
		return nil, err
	}

	var created *Appointment
	err = s.repo.InProviderLock(ctx, appt.ProviderID, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, appt, nil); err != nil {
			return err
		}
		var err error
		created, err = s.repo.Create(ctx, appt)
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(source, bookingOutcome(err))
		if !errors.Is(err, ErrConflict) {
			s.logger.Error("failed to book appointment", "provider_id", appt.ProviderID, "error", err)
		}
		return nil, err
	}

	s.metrics.ObserveBooking(source, "booked")
	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"provider_id", created.ProviderID,
		"client_id", created.ClientID,
		"start", created.Start,
		"source", source,
	)
	return created, nil
}

// Update applies req to the appointment. Changes to provider, time or a
// move out of cancelled are re-checked against the calendar.
func (s *Scheduler) Update(ctx context.Context, id uuid.UUID, req *UpdateAppointmentRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.update")
	defer span.End()
	span.SetAttributes(attribute.String("crm.appointment_id", id.String()))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.resolveUpdate(ctx, existing, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	recheck := next.Status.Occupies() && (next.ProviderID != existing.ProviderID ||
		!next.Start.Equal(existing.Start) ||
		!next.End.Equal(existing.End) ||
		!existing.Status.Occupies())
	if !recheck {
		return s.repo.Update(ctx, next)
	}

	var updated *Appointment
	err = s.repo.InProviderLock(ctx, next.ProviderID, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, next, &id); err != nil {
			return err
		}
		var err error
		updated, err = s.repo.Update(ctx, next)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", id, "provider_id", updated.ProviderID, "start", updated.Start)
	return updated, nil
}

// Cancel marks the appointment cancelled, releasing its slot.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// Get returns the appointment with participant names resolved.
func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []*Appointment{a})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns matching appointments ordered by start time.
func (s *Scheduler) List(ctx context.Context, filter ListFilter) ([]View, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

// ProviderSlots is one provider's entry in an availability report.
type ProviderSlots struct {
	Provider         *providers.Provider `json:"provider"`
	AvailableSlots   []Slot              `json:"availableSlots"`
	AppointmentCount int                 `json:"appointmentCount"`
}

// Slot is a bookable interval rendered as wall-clock HH:MM.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityReport answers GET /api/appointments/availability.
type AvailabilityReport struct {
	Date            string          `json:"date"`
	DurationMinutes int             `json:"durationMinutes"`
	Providers       []ProviderSlots `json:"providers"`
}

// Availability lists bookable slots on date for one provider, or for every
// active provider when providerID is nil.
func (s *Scheduler) Availability(ctx context.Context, date time.Time, duration time.Duration, providerID *uuid.UUID) (*AvailabilityReport, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.availability")
	defer span.End()

	if duration <= 0 {
		return nil, availability.ErrInvalidDuration
	}
	var list []*providers.Provider
	if providerID != nil {
		p, err := s.providers.GetByID(ctx, *providerID)
		if err != nil && !errors.Is(err, providers.ErrProviderNotFound) {
			return nil, err
		}
		if p != nil && p.IsActive {
			list = append(list, p)
		}
	} else {
		var err error
		if list, err = s.providers.List(ctx, providers.ListFilter{ActiveOnly: true}); err != nil {
			return nil, err
		}
	}

	loc := s.Location()
	report := &AvailabilityReport{
		Date:            date.Format(time.DateOnly),
		DurationMinutes: int(duration / time.Minute),
		Providers:       make([]ProviderSlots, 0, len(list)),
	}
	for _, p := range list {
		slots, err := s.checker.FindSlots(ctx, availability.SlotQuery{ProviderID: p.ID, Date: date, Duration: duration})
		if err != nil {
			return nil, err
		}
		day, err := s.checker.FreeTime(ctx, p.ID, date)
		if err != nil {
			return nil, err
		}
		entry := ProviderSlots{Provider: p, AvailableSlots: make([]Slot, 0, len(slots)), AppointmentCount: day.Appointments}
		for _, iv := range slots {
			entry.AvailableSlots = append(entry.AvailableSlots, Slot{
				Start: iv.Start.In(loc).Format("15:04"),
				End:   iv.End.In(loc).Format("15:04"),
			})
		}
		report.Providers = append(report.Providers, entry)
	}
	span.SetAttributes(attribute.Int("crm.providers", len(report.Providers)))
	return report, nil
}

func (s *Scheduler) ensureFree(ctx context.Context, a *Appointment, exclude *uuid.UUID) error {
	verdict, err := s.checker.Check(ctx, availability.Request{
		ProviderID:           a.ProviderID,
		Start:                a.Start,
		End:                  a.End,
		ExcludeAppointmentID: exclude,
	})
	if err != nil {
		return err
	}
	if !verdict.Free {
		return &ConflictError{Conflicts: verdict.Conflicts}
	}
	return nil
}

func (s *Scheduler) resolveCreate(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if req.ProviderID == uuid.Nil || req.ClientID == uuid.Nil {
		return nil, ErrMissingParticipant
	}
	if _, err := s.providers.GetByID(ctx, req.ProviderID); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, req.ClientID); err != nil {
		return nil, err
	}

	loc := s.Location()
	start, err := parseTime(firstNonEmpty(req.Start, req.StartTime), loc)
	if err != nil {
		return nil, err
	}
	a := &Appointment{
		Title:       strings.TrimSpace(req.Title),
		Start:       start.UTC(),
		ProviderID:  req.ProviderID,
		ClientID:    req.ClientID,
		ServiceID:   req.ServiceID,
		ServiceType: strings.TrimSpace(req.ServiceType),
		Notes:       strings.TrimSpace(req.Notes),
		Status:      StatusScheduled,
		Revenue:     req.Revenue,
		Color:       strings.TrimSpace(req.Color),
	}

	var svc *catalog.Service
	if req.ServiceID != nil && s.services != nil {
		if svc, err = s.services.GetByID(ctx, *req.ServiceID); err != nil {
			return nil, err
		}
		if a.Revenue == nil {
			price := svc.Price
			a.Revenue = &price
		}
		if a.ServiceType == "" {
			a.ServiceType = svc.Name
		}
	}

	if rawEnd := firstNonEmpty(req.End, req.EndTime); rawEnd != "" {
		end, err := parseTime(rawEnd, loc)
		if err != nil {
			return nil, err
		}
		a.End = end.UTC()
	} else if svc != nil && svc.DurationMinutes > 0 {
		a.End = a.Start.Add(svc.Duration())
	} else {
		return nil, ErrInvalidTime
	}

	if _, err := availability.NewInterval(a.Start, a.End); err != nil {
		return nil, err
	}
	if a.Revenue != nil && *a.Revenue < 0 {
		return nil, ErrInvalidRevenue
	}
	return a, nil
}

func (s *Scheduler) resolveUpdate(ctx context.Context, existing *Appointment, req *UpdateAppointmentRequest) (*Appointment, error) {
	next := *existing
	loc := s.Location()

	if req.ProviderID != nil {
		if _, err := s.providers.GetByID(ctx, *req.ProviderID); err != nil {
			return nil, err
		}
		next.ProviderID = *req.ProviderID
	}
	if req.ClientID != nil {
		if _, err := s.clients.GetByID(ctx, *req.ClientID); err != nil {
			return nil, err
		}
		next.ClientID = *req.ClientID
	}
	if req.ServiceID != nil {
		next.ServiceID = req.ServiceID
		if req.Revenue == nil && s.services != nil {
			svc, err := s.services.GetByID(ctx, *req.ServiceID)
			if err != nil {
				return nil, err
			}
			price := svc.Price
			next.Revenue = &price
		}
	}
	if req.Revenue != nil {
		if *req.Revenue < 0 {
			return nil, ErrInvalidRevenue
		}
		revenue := *req.Revenue
		next.Revenue = &revenue
	}
	if raw := firstSet(req.Start, req.StartTime); raw != nil {
		t, err := parseTime(*raw, loc)
		if err != nil {
			return nil, err
		}
		next.Start = t.UTC()
	}
	if raw := firstSet(req.End, req.EndTime); raw != nil {
		t, err := parseTime(*raw, loc)
		if err != nil {
			return nil, err
		}
		next.End = t.UTC()
	}
	if _, err := availability.NewInterval(next.Start, next.End); err != nil {
		return nil, err
	}
	if req.Title != nil {
		next.Title = strings.TrimSpace(*req.Title)
	}
	if req.ServiceType != nil {
		next.ServiceType = strings.TrimSpace(*req.ServiceType)
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Color != nil {
		next.Color = strings.TrimSpace(*req.Color)
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		next.Status = status
	}
	return &next, nil
}

func (s *Scheduler) views(ctx context.Context, list []*Appointment) ([]View, error) {
	provCache := make(map[uuid.UUID]*providers.Provider)
	clientCache := make(map[uuid.UUID]*clients.Client)
	loc := s.Location()

	out := make([]View, 0, len(list))
	for _, a := range list {
		p, ok := provCache[a.ProviderID]
		if !ok {
			var err error
			if p, err = s.providers.GetByID(ctx, a.ProviderID); err != nil && !errors.Is(err, providers.ErrProviderNotFound) {
				return nil, err
			}
			provCache[a.ProviderID] = p
		}
		c, ok := clientCache[a.ClientID]
		if !ok {
			var err error
			if c, err = s.clients.GetByID(ctx, a.ClientID); err != nil && !errors.Is(err, clients.ErrClientNotFound) {
				return nil, err
			}
			clientCache[a.ClientID] = c
		}
		out = append(out, newView(a, p, c, loc))
	}
	return out, nil
}

func newView(a *Appointment, p *providers.Provider, c *clients.Client, loc *time.Location) View {
	v := View{Appointment: *a}
	v.Start = a.Start.In(loc)
	v.End = a.End.In(loc)
	if p != nil {
		v.ProviderName = p.DisplayName()
	}
	if c != nil {
		v.ClientName = c.Name
	}
	if v.Title == "" {
		v.Title = v.ClientName
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.Color == "" && p != nil {
		v.Color = p.Color
	}
	if v.Color == "" {
		v.Color = providers.DefaultColor
	}
	v.ExtendedProps = ExtendedProps{
		ProviderID:   a.ProviderID,
		ClientID:     a.ClientID,
		ProviderName: v.ProviderName,
		ClientName:   v.ClientName,
		ServiceType:  a.ServiceType,
		Status:       a.Status,
		Notes:        a.Notes,
	}
	return v
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, availability.ErrInvalidInterval), errors.Is(err, availability.ErrProviderNotFound):
		return "invalid"
	default:
		return "error"
	}
}
