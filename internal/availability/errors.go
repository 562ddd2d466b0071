package availability

import "errors"

var (
	// ErrProviderNotFound is returned when the provider id is unknown.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidInterval is returned when end is not after start.
	ErrInvalidInterval = errors.New("end time must be after start time")

	// ErrInvalidWorkingHours is returned for malformed HH:MM-HH:MM strings.
	ErrInvalidWorkingHours = errors.New("working hours must look like HH:MM-HH:MM with start before end")

	// ErrInvalidPattern is returned for an unknown recurrence pattern.
	ErrInvalidPattern = errors.New("recurrence pattern must be daily, weekly or monthly")

	// ErrInvalidDuration is returned when a slot search asks for a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be positive")
)
