package appointments

import (
	"errors"
	"strings"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

var (
	// ErrAppointmentNotFound is returned when an appointment is not found
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrInvalidStatus is returned for an unknown status value
	ErrInvalidStatus = errors.New("status must be one of scheduled, confirmed, completed, cancelled, no_show")

	// ErrMissingParticipant is returned when provider_id or client_id is absent
	ErrMissingParticipant = errors.New("provider_id and client_id are required")

	// ErrInvalidTime is returned for an unparseable or missing timestamp
	ErrInvalidTime = errors.New("invalid timestamp")

	// ErrInvalidRevenue is returned for a negative revenue
	ErrInvalidRevenue = errors.New("revenue must not be negative")

	// ErrConflict is returned when the provider is busy for the requested time
	ErrConflict = errors.New("provider is not available at this time")
)

// ConflictError carries the overlaps that blocked a booking.
type ConflictError struct {
	Conflicts []availability.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return ErrConflict.Error()
	}
	reasons := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		reasons = append(reasons, c.Reason)
	}
	return ErrConflict.Error() + ": " + strings.Join(reasons, "; ")
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
