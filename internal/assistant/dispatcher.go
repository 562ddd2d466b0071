package assistant

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

var assistantTracer = otel.Tracer("crm.internal.assistant")

const (
	availabilityDays   = 7
	appointmentListCap = 20
	clientSearchCap    = 10
)

var honorific = regexp.MustCompile(`^(Dr\.|Prof\.|Mr\.|Ms\.|Mrs\.)\s+`)

// FunctionResult is what a function call reports back to the chat layer.
// Failures, including calendar conflicts, are results rather than errors.
type FunctionResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Conflict *ConflictInfo `json:"conflict,omitempty"`
}

// ConflictInfo explains why a booking was refused.
type ConflictInfo struct {
	ProviderID uuid.UUID               `json:"providerId"`
	Provider   string                  `json:"provider"`
	Start      time.Time               `json:"start"`
	End        time.Time               `json:"end"`
	Conflicts  []availability.Conflict `json:"conflicts"`
}

func ok(format string, args ...any) FunctionResult {
	return FunctionResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) FunctionResult {
	return FunctionResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Dispatcher executes the model's function calls against the CRM.
type Dispatcher struct {
	scheduler *appointments.Scheduler
	checker   *availability.Checker
	providers providers.Repository
	clients   clients.Repository
	services  catalog.Repository
	loc       *time.Location
	now       func() time.Time
	logger    *logging.Logger
}

// NewDispatcher wires a dispatcher. services may be nil.
func NewDispatcher(scheduler *appointments.Scheduler, checker *availability.Checker, providerRepo providers.Repository, clientRepo clients.Repository, services catalog.Repository, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		scheduler: scheduler,
		checker:   checker,
		providers: providerRepo,
		clients:   clientRepo,
		services:  services,
		loc:       checker.Location(),
		now:       time.Now,
		logger:    logger,
	}
}

// Execute runs the named function. It never returns an error; failures are
// reported in the result so the assistant can explain them.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) FunctionResult {
	ctx, span := assistantTracer.Start(ctx, "assistant.execute")
	defer span.End()
	span.SetAttributes(attribute.String("crm.function", name))

	var result FunctionResult
	switch name {
	case FnCreateAppointment:
		result = d.createAppointment(ctx, args)
	case FnGetAppointments:
		result = d.getAppointments(ctx, args)
	case FnCheckAvailability:
		result = d.checkAvailability(ctx, args)
	case FnGetProviderSchedule:
		result = d.providerSchedule(ctx, args)
	case FnCancelAppointment:
		result = d.cancelAppointment(ctx, args)
	case FnCreateClient:
		result = d.createClient(ctx, args)
	case FnCreateProvider:
		result = d.createProvider(ctx, args)
	case FnSearchClients:
		result = d.searchClients(ctx, args)
	default:
		result = fail("Unknown function: %s", name)
	}
	span.SetAttributes(attribute.Bool("crm.success", result.Success))
	d.logger.Info("assistant function executed", "function", name, "success", result.Success)
	return result
}

func (d *Dispatcher) createAppointment(ctx context.Context, args map[string]any) FunctionResult {
	provider, res, found := d.provider(ctx, args)
	if !found {
		return res
	}
	client, res, found := d.client(ctx, args)
	if !found {
		return res
	}

	date := argString(args, "date")
	startClock := argString(args, "start_time")
	if date == "" || startClock == "" {
		return fail("date and start_time are required")
	}
	req := &appointments.CreateAppointmentRequest{
		ProviderID: provider.ID,
		ClientID:   client.ID,
		StartTime:  date + "T" + startClock,
		Title:      client.Name,
		Notes:      argString(args, "notes"),
		Color:      provider.Color,
	}
	var serviceName string
	if raw := argString(args, "service_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fail("Service not found")
		}
		req.ServiceID = &id
		if d.services != nil {
			if svc, err := d.services.GetByID(ctx, id); err == nil {
				serviceName = svc.Name
			}
		}
	}
	if endClock := argString(args, "end_time"); endClock != "" {
		req.EndTime = date + "T" + endClock
	} else if req.ServiceID == nil {
		start, err := time.ParseInLocation("2006-01-02T15:04", req.StartTime, d.loc)
		if err != nil {
			return fail("invalid date or start_time")
		}
		req.EndTime = start.Add(appointments.DefaultSlotMinutes * time.Minute).Format("2006-01-02T15:04")
	}

	created, err := d.scheduler.Book(ctx, req, appointments.SourceAssistant)
	if err != nil {
		var conflict *appointments.ConflictError
		switch {
		case errors.As(err, &conflict):
			start, _ := time.ParseInLocation("2006-01-02T15:04", req.StartTime, d.loc)
			end, _ := time.ParseInLocation("2006-01-02T15:04", req.EndTime, d.loc)
			return FunctionResult{
				Success: false,
				Error:   fmt.Sprintf("%s is unavailable at this time (%s)", provider.DisplayName(), conflictReasons(conflict.Conflicts)),
				Conflict: &ConflictInfo{
					ProviderID: provider.ID,
					Provider:   provider.DisplayName(),
					Start:      start,
					End:        end,
					Conflicts:  conflict.Conflicts,
				},
			}
		case errors.Is(err, catalog.ErrServiceNotFound):
			return fail("Service not found")
		default:
			return fail("%s", err.Error())
		}
	}

	if serviceName != "" {
		serviceName = " - " + serviceName
	}
	start := created.Start.In(d.loc)
	return ok("✅ Booked! %s with %s%s\n📅 %s at %s",
		client.Name, provider.DisplayName(), serviceName, start.Format("Monday, January 02"), start.Format("3:04 PM"))
}

func (d *Dispatcher) getAppointments(ctx context.Context, args map[string]any) FunctionResult {
	providerID, err := optionalUUID(args, "provider_id")
	if err != nil {
		return fail("Provider not found")
	}
	clientID, err := optionalUUID(args, "client_id")
	if err != nil {
		return fail("Client not found")
	}
	filter := appointments.ListFilter{ProviderID: providerID, ClientID: clientID}

	var dayLabel string
	if raw := argString(args, "date"); raw != "" {
		day, err := time.ParseInLocation(time.DateOnly, raw, d.loc)
		if err != nil {
			return fail("date must be YYYY-MM-DD")
		}
		from, to := day, day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.From, filter.To = &from, &to
		dayLabel = day.Format("Monday, January 02")
	} else {
		today := d.today()
		filter.From = &today
	}

	views, err := d.scheduler.List(ctx, filter)
	if err != nil {
		return fail("%s", err.Error())
	}
	var active []appointments.View
	for _, v := range views {
		if v.Status != appointments.StatusCancelled {
			active = append(active, v)
		}
		if len(active) == appointmentListCap {
			break
		}
	}

	if len(active) == 0 {
		if dayLabel != "" {
			return ok("📅 No appointments on %s", dayLabel)
		}
		return ok("📅 No appointments found")
	}
	var b strings.Builder
	if dayLabel != "" {
		fmt.Fprintf(&b, "📅 **%s** - %d appointment(s):\n", dayLabel, len(active))
	} else {
		fmt.Fprintf(&b, "📅 Found %d appointment(s):\n", len(active))
	}
	for _, v := range active {
		span := d.clockRange(v.Start, v.End)
		if dayLabel == "" {
			span = v.Start.In(d.loc).Format("Mon Jan 02") + " " + span
		}
		fmt.Fprintf(&b, "\n• %s - %s with %s", span, orUnknown(v.ClientName), orUnknown(v.ProviderName))
	}
	return ok("%s", b.String())
}

func (d *Dispatcher) checkAvailability(ctx context.Context, args map[string]any) FunctionResult {
	start := d.today()
	if raw := argString(args, "date"); raw != "" {
		day, err := time.ParseInLocation(time.DateOnly, raw, d.loc)
		if err != nil {
			return fail("date must be YYYY-MM-DD")
		}
		start = day
	}

	if argString(args, "provider_id") == "" {
		return d.availabilityForAll(ctx, start)
	}
	provider, res, found := d.provider(ctx, args)
	if !found {
		return res
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s availability (%s - %s):\n", provider.DisplayName(), start.Format("Jan 02"), start.AddDate(0, 0, availabilityDays-1).Format("Jan 02"))
	for i := 0; i < availabilityDays; i++ {
		day := start.AddDate(0, 0, i)
		free, err := d.checker.FreeTime(ctx, provider.ID, day)
		if err != nil {
			return fail("%s", err.Error())
		}
		fmt.Fprintf(&b, "\n• %s: %s", day.Format("Monday, Jan 02"), describeFreeTime(free))
	}
	return ok("%s", b.String())
}

func (d *Dispatcher) availabilityForAll(ctx context.Context, day time.Time) FunctionResult {
	list, err := d.providers.List(ctx, providers.ListFilter{ActiveOnly: true})
	if err != nil {
		return fail("%s", err.Error())
	}
	if len(list) == 0 {
		return ok("No providers registered yet")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Availability for %s:\n", day.Format("Monday, Jan 02"))
	for _, p := range list {
		free, err := d.checker.FreeTime(ctx, p.ID, day)
		if err != nil {
			return fail("%s", err.Error())
		}
		fmt.Fprintf(&b, "\n• %s: %s", p.DisplayName(), describeFreeTime(free))
		for _, gap := range free.Free {
			fmt.Fprintf(&b, "\n   %s", d.clockRange(gap.Start, gap.End))
		}
	}
	return ok("%s", b.String())
}

func describeFreeTime(free availability.DayFreeTime) string {
	total := strconv.FormatFloat(free.WorkingHours, 'f', -1, 64)
	switch {
	case free.FreeHours <= 0:
		return "Fully booked"
	case len(free.Busy) == 0:
		return fmt.Sprintf("%.1fh free (fully available)", free.FreeHours)
	default:
		return fmt.Sprintf("%.1fh free (out of %sh)", free.FreeHours, total)
	}
}

func (d *Dispatcher) providerSchedule(ctx context.Context, args map[string]any) FunctionResult {
	provider, res, found := d.provider(ctx, args)
	if !found {
		return res
	}
	day, err := time.ParseInLocation(time.DateOnly, argString(args, "date"), d.loc)
	if err != nil {
		return fail("date must be YYYY-MM-DD")
	}
	from, to := day, day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	views, err := d.scheduler.List(ctx, appointments.ListFilter{ProviderID: &provider.ID, From: &from, To: &to})
	if err != nil {
		return fail("%s", err.Error())
	}
	blocks, err := d.checker.Occurrences(ctx, provider.ID, availability.Interval{Start: day, End: day.AddDate(0, 0, 1)})
	if err != nil {
		return fail("%s", err.Error())
	}

	var lines []string
	for _, v := range views {
		if v.Status == appointments.StatusCancelled {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s - %s", d.clockRange(v.Start, v.End), orUnknown(v.ClientName)))
	}
	label := day.Format("Monday, January 02")
	if len(lines) == 0 && len(blocks) == 0 {
		return ok("📅 %s has no schedule for %s", provider.DisplayName(), label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **%s** schedule for %s:\n", provider.DisplayName(), label)
	if len(lines) > 0 {
		b.WriteString("\n**Appointments:**\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	if len(blocks) > 0 {
		b.WriteString("\n**Blocked Times:**")
		for _, c := range blocks {
			fmt.Fprintf(&b, "\n• %s - %s", d.clockRange(c.Interval.Start, c.Interval.End), c.Reason)
		}
	}
	return ok("%s", strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, args map[string]any) FunctionResult {
	id, err := uuid.Parse(argString(args, "appointment_id"))
	if err != nil {
		return fail("Appointment not found")
	}
	view, err := d.scheduler.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			return fail("Appointment not found")
		}
		return fail("%s", err.Error())
	}
	if err := d.scheduler.Cancel(ctx, id); err != nil {
		return fail("%s", err.Error())
	}
	return ok("❌ Cancelled appointment: %s with %s on %s",
		orUnknown(view.ClientName), orUnknown(view.ProviderName), view.Start.In(d.loc).Format("Monday, January 02 at 15:04"))
}

func (d *Dispatcher) createClient(ctx context.Context, args map[string]any) FunctionResult {
	name := argString(args, "name")
	if name == "" {
		return fail("name is required")
	}
	if _, err := d.clients.FindByName(ctx, name); err == nil {
		return fail("Client '%s' already exists", name)
	} else if !errors.Is(err, clients.ErrClientNotFound) {
		return fail("%s", err.Error())
	}
	if _, err := d.clients.Create(ctx, &clients.CreateClientRequest{
		Name:  name,
		Email: argString(args, "email"),
		Phone: argString(args, "phone"),
	}); err != nil {
		return fail("%s", err.Error())
	}
	return ok("✅ Created client: %s", name)
}

func (d *Dispatcher) createProvider(ctx context.Context, args map[string]any) FunctionResult {
	name := argString(args, "name")
	if name == "" {
		return fail("name is required")
	}
	title := argString(args, "title")
	specialty := argString(args, "specialty")

	storedTitle := title
	if prefix := honorific.FindStringSubmatch(name); prefix != nil {
		// The prefix already renders in the name.
		storedTitle = ""
		if title == "" {
			title = inferTitle(prefix[1])
		}
	} else if storedTitle == "" {
		storedTitle = "Provider"
		title = storedTitle
	}

	if _, err := d.providers.FindActiveByName(ctx, name); err == nil {
		return fail("Provider '%s' already exists", name)
	} else if !errors.Is(err, providers.ErrProviderNotFound) {
		return fail("%s", err.Error())
	}

	hours := argString(args, "working_hours")
	if hours == "" {
		hours = availability.DefaultWorkingHours
	}
	if _, err := d.providers.Create(ctx, &providers.CreateProviderRequest{
		Name:         name,
		Title:        storedTitle,
		Specialty:    specialty,
		Email:        argString(args, "email"),
		Phone:        argString(args, "phone"),
		WorkingHours: hours,
		Color:        ProviderColor(name),
	}); err != nil {
		return fail("%s", err.Error())
	}

	if specialty != "" {
		specialty = " - " + specialty
	}
	return ok("✅ Created provider: %s (%s%s)", name, title, specialty)
}

func inferTitle(prefix string) string {
	switch prefix {
	case "Dr.":
		return "Doctor"
	case "Prof.":
		return "Professor"
	default:
		return "Provider"
	}
}

// ProviderColor derives a stable calendar color from the provider name.
func ProviderColor(name string) string {
	sum := md5.Sum([]byte(name))
	v, _ := strconv.ParseUint(hex.EncodeToString(sum[:3]), 16, 32)
	return fmt.Sprintf("#%06x", v%0xFFFFFF)
}

func (d *Dispatcher) searchClients(ctx context.Context, args map[string]any) FunctionResult {
	query := argString(args, "query")
	if query == "" {
		query = argString(args, "name")
	}
	list, err := d.clients.List(ctx, clients.ListFilter{Search: query, ActiveOnly: true, Limit: clientSearchCap})
	if err != nil {
		return fail("%s", err.Error())
	}
	if len(list) == 0 {
		return ok("No clients found matching '%s'", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d client(s):\n", len(list))
	for _, c := range list {
		fmt.Fprintf(&b, "\n• %s [ID: %s]", c.Name, c.ID)
		if c.Phone != "" {
			b.WriteString(" - " + c.Phone)
		}
		if c.Email != "" {
			b.WriteString(" - " + c.Email)
		}
	}
	return ok("%s", b.String())
}

func (d *Dispatcher) provider(ctx context.Context, args map[string]any) (*providers.Provider, FunctionResult, bool) {
	id, err := uuid.Parse(argString(args, "provider_id"))
	if err != nil {
		return nil, fail("Provider not found"), false
	}
	p, err := d.providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, providers.ErrProviderNotFound) {
			return nil, fail("Provider not found"), false
		}
		return nil, fail("%s", err.Error()), false
	}
	return p, FunctionResult{}, true
}

func (d *Dispatcher) client(ctx context.Context, args map[string]any) (*clients.Client, FunctionResult, bool) {
	id, err := uuid.Parse(argString(args, "client_id"))
	if err != nil {
		return nil, fail("Client not found"), false
	}
	c, err := d.clients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			return nil, fail("Client not found"), false
		}
		return nil, fail("%s", err.Error()), false
	}
	return c, FunctionResult{}, true
}

func (d *Dispatcher) today() time.Time {
	now := d.now().In(d.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
}

func (d *Dispatcher) clockRange(start, end time.Time) string {
	return start.In(d.loc).Format("15:04") + "-" + end.In(d.loc).Format("15:04")
}

func conflictReasons(conflicts []availability.Conflict) string {
	if len(conflicts) == 0 {
		return "busy"
	}
	reasons := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		reasons = append(reasons, c.Reason)
	}
	return strings.Join(reasons, "; ")
}

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func optionalUUID(args map[string]any, key string) (*uuid.UUID, error) {
	raw := argString(args, key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
