package providers

import "errors"

var (
	// ErrProviderNotFound is returned when a provider is not found
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidName is returned when the name is blank
	ErrInvalidName = errors.New("name is required")

	// ErrDuplicateName is returned when an active provider already uses the name
	ErrDuplicateName = errors.New("provider with this name already exists")
)
