package blockedtimes

import "errors"

var (
	// ErrBlockedTimeNotFound is returned when a blocked time is not found
	ErrBlockedTimeNotFound = errors.New("blocked time not found")

	// ErrInvalidBlockType is returned for an unknown block_type
	ErrInvalidBlockType = errors.New("block_type must be one of lunch, break, meeting, vacation, sick, personal, other")

	// ErrMissingPattern is returned when is_recurring is set without a pattern
	ErrMissingPattern = errors.New("recurrence_pattern is required for recurring blocked times")

	// ErrMissingProvider is returned when provider_id is absent
	ErrMissingProvider = errors.New("provider_id is required")

	// ErrInvalidTime is returned for an unparseable timestamp
	ErrInvalidTime = errors.New("invalid timestamp")
)
