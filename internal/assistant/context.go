package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

const (
	contextDays    = 14
	contextClients = 50
)

const instructions = `You are the scheduling assistant of a clinic front desk. You manage the calendar through the functions you are given and answer in a friendly, brief tone.

Rules:
- Use IDs from the CRM DATA section. Never invent an ID.
- Resolve relative dates ("tomorrow", "next Tuesday") with the DATE REFERENCE section and send dates as YYYY-MM-DD.
- Send times in 24-hour HH:MM. Without an end time appointments last 30 minutes.
- Match partial names when only one client or provider fits ("John" is "John Smith" if he is the only John).
- Book straight away when the request is clear, then say what you did. Do not ask for confirmation first.
- Never book inside a blocked time. When a booking is refused, suggest a nearby free slot.
- "Appointments on Tuesday" means every appointment that day; do not ask which client.
- For questions about the week, call check_availability once and summarise, using the upcoming appointments below.
- If a client does not exist yet, create them with create_client before booking.`

// ContextBuilder renders the system prompt: date reference plus a snapshot
// of the CRM.
type ContextBuilder struct {
	providers providers.Repository
	clients   clients.Repository
	scheduler *appointments.Scheduler
	checker   *availability.Checker
	loc       *time.Location
	now       func() time.Time
}

// NewContextBuilder wires a context builder.
func NewContextBuilder(providerRepo providers.Repository, clientRepo clients.Repository, scheduler *appointments.Scheduler, checker *availability.Checker) *ContextBuilder {
	return &ContextBuilder{
		providers: providerRepo,
		clients:   clientRepo,
		scheduler: scheduler,
		checker:   checker,
		loc:       checker.Location(),
		now:       time.Now,
	}
}

// SystemPrompt returns the instructions, date reference and CRM data.
func (b *ContextBuilder) SystemPrompt(ctx context.Context) (string, error) {
	data, err := b.Data(ctx)
	if err != nil {
		return "", err
	}
	return instructions + "\n\n" + b.dateReference() + "\n\n=== CRM DATA ===\n" + data + "=== END CRM DATA ===", nil
}

func (b *ContextBuilder) dateReference() string {
	now := b.now().In(b.loc)
	var sb strings.Builder
	sb.WriteString("=== DATE REFERENCE ===\n")
	fmt.Fprintf(&sb, "TODAY: %s (%s)\n", now.Format("Monday, January 02, 2006"), now.Format(time.DateOnly))
	fmt.Fprintf(&sb, "CURRENT TIME: %s\n\nUPCOMING DATES:\n", now.Format("15:04"))
	for i := 0; i < contextDays; i++ {
		day := now.AddDate(0, 0, i)
		var label string
		switch {
		case i == 0:
			label = "TODAY"
		case i == 1:
			label = "TOMORROW"
		case i < 7:
			label = "THIS WEEK"
		default:
			label = "NEXT WEEK"
		}
		fmt.Fprintf(&sb, "  %s: %s (%s) (%s)\n", day.Format("Monday"), day.Format(time.DateOnly), day.Format("January 02"), label)
	}
	sb.WriteString("=== END DATE REFERENCE ===")
	return sb.String()
}

// Data lists active providers, up to 50 clients, and the next 14 days of
// appointments and blocked times.
func (b *ContextBuilder) Data(ctx context.Context) (string, error) {
	var sb strings.Builder

	provs, err := b.providers.List(ctx, providers.ListFilter{ActiveOnly: true})
	if err != nil {
		return "", fmt.Errorf("assistant: list providers: %w", err)
	}
	sb.WriteString("PROVIDERS:\n")
	if len(provs) == 0 {
		sb.WriteString("- No providers registered yet\n")
	}
	for _, p := range provs {
		specialty := p.Specialty
		if specialty == "" {
			specialty = "General"
		}
		fmt.Fprintf(&sb, "- %s [ID: %s] - %s, Hours: %s\n", p.DisplayName(), p.ID, specialty, p.WorkingHours)
	}

	list, err := b.clients.List(ctx, clients.ListFilter{ActiveOnly: true, Limit: contextClients})
	if err != nil {
		return "", fmt.Errorf("assistant: list clients: %w", err)
	}
	sb.WriteString("\nCLIENTS:\n")
	if len(list) == 0 {
		sb.WriteString("- No clients registered yet\n")
	}
	for _, c := range list {
		fmt.Fprintf(&sb, "- %s [ID: %s]", c.Name, c.ID)
		if c.Phone != "" {
			fmt.Fprintf(&sb, " - Phone: %s", c.Phone)
		}
		sb.WriteString("\n")
	}

	now := b.now().In(b.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.loc)
	window := availability.Interval{Start: from, End: from.AddDate(0, 0, contextDays)}
	to := window.End.Add(-time.Nanosecond)
	views, err := b.scheduler.List(ctx, appointments.ListFilter{From: &from, To: &to})
	if err != nil {
		return "", fmt.Errorf("assistant: list appointments: %w", err)
	}
	sb.WriteString("\nUPCOMING APPOINTMENTS (next 2 weeks):\n")
	written := 0
	for _, v := range views {
		if v.Status == appointments.StatusCancelled {
			continue
		}
		written++
		fmt.Fprintf(&sb, "- [ID: %s] %s-%s | Provider: %s | Client: %s | Status: %s\n",
			v.ID, v.Start.In(b.loc).Format("2006-01-02 15:04"), v.End.In(b.loc).Format("15:04"),
			orUnknown(v.ProviderName), orUnknown(v.ClientName), v.Status)
	}
	if written == 0 {
		sb.WriteString("- No upcoming appointments\n")
	}

	sb.WriteString("\nBLOCKED TIMES (provider unavailable):\n")
	written = 0
	for _, p := range provs {
		blocks, err := b.checker.Occurrences(ctx, p.ID, window)
		if err != nil {
			return "", fmt.Errorf("assistant: list blocked times: %w", err)
		}
		for _, c := range blocks {
			written++
			fmt.Fprintf(&sb, "- %s-%s | Provider: %s | Reason: %s\n",
				c.Interval.Start.In(b.loc).Format("2006-01-02 15:04"), c.Interval.End.In(b.loc).Format("15:04"), p.DisplayName(), c.Reason)
		}
	}
	if written == 0 {
		sb.WriteString("- No blocked times\n")
	}
	return sb.String(), nil
}
