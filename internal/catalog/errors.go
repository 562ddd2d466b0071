package catalog

import "errors"

var (
	// ErrServiceNotFound is returned when a service is not found
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidName is returned when the name is blank
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidDuration is returned when duration_minutes is not positive
	ErrInvalidDuration = errors.New("duration_minutes must be greater than 0")

	// ErrInvalidPrice is returned when price is negative
	ErrInvalidPrice = errors.New("price must not be negative")

	// ErrInvalidProvider is returned when provider_id is missing or malformed
	ErrInvalidProvider = errors.New("invalid provider id")
)
