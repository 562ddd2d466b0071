package clients

import "errors"

var (
	// ErrClientNotFound is returned when a client is not found
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidName is returned when the name is blank
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidDateOfBirth is returned for an unparseable date_of_birth
	ErrInvalidDateOfBirth = errors.New("date_of_birth must be YYYY-MM-DD")
)
