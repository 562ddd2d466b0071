package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/httpjson"
)

// Status tracks an appointment through its lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

// ParseStatus validates raw.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Occupies reports whether an appointment in this status holds its slot.
// No-shows keep their slot; only cancellation releases it.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

// DefaultTitle is used when neither a title nor a client name is known.
const DefaultTitle = "Appointment"

// Appointment links a provider and a client for a time interval.
type Appointment struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	ProviderID  uuid.UUID  `json:"providerId"`
	ClientID    uuid.UUID  `json:"clientId"`
	ServiceID   *uuid.UUID `json:"serviceId"`
	ServiceType string     `json:"serviceType"`
	Notes       string     `json:"notes"`
	Status      Status     `json:"status"`
	Revenue     *float64   `json:"revenue"`
	Color       string     `json:"color"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// View is the calendar representation of an appointment with participant
// names resolved and display defaults applied.
type View struct {
	Appointment
	ProviderName  string        `json:"providerName"`
	ClientName    string        `json:"clientName"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

// ExtendedProps mirrors the fields calendar widgets read from extendedProps.
type ExtendedProps struct {
	ProviderID   uuid.UUID `json:"providerId"`
	ClientID     uuid.UUID `json:"clientId"`
	ProviderName string    `json:"providerName"`
	ClientName   string    `json:"clientName"`
	ServiceType  string    `json:"serviceType"`
	Status       Status    `json:"status"`
	Notes        string    `json:"notes"`
}

// CreateAppointmentRequest is the body of POST /api/appointments. Both
// start/end and start_time/end_time are accepted. With a service_id, end may
// be omitted and is derived from the service duration.
type CreateAppointmentRequest struct {
	ProviderID  uuid.UUID  `json:"provider_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	ServiceID   *uuid.UUID `json:"service_id"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Title       string     `json:"title"`
	ServiceType string     `json:"service_type"`
	Notes       string     `json:"notes"`
	Revenue     *float64   `json:"revenue"`
	Color       string     `json:"color"`
}

// UpdateAppointmentRequest is a partial update; nil fields are left unchanged.
type UpdateAppointmentRequest struct {
	ProviderID  *uuid.UUID `json:"provider_id"`
	ClientID    *uuid.UUID `json:"client_id"`
	ServiceID   *uuid.UUID `json:"service_id"`
	Start       *string    `json:"start"`
	End         *string    `json:"end"`
	StartTime   *string    `json:"start_time"`
	EndTime     *string    `json:"end_time"`
	Title       *string    `json:"title"`
	ServiceType *string    `json:"service_type"`
	Notes       *string    `json:"notes"`
	Status      *string    `json:"status"`
	Revenue     *float64   `json:"revenue"`
	Color       *string    `json:"color"`
}

// ListFilter narrows List results. From and To bound the start time, both inclusive.
type ListFilter struct {
	ProviderID *uuid.UUID
	ClientID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	Status     Status
}

func (f ListFilter) matches(a *Appointment) bool {
	if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
		return false
	}
	if f.ClientID != nil && a.ClientID != *f.ClientID {
		return false
	}
	if f.From != nil && a.Start.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Start.After(*f.To) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
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
