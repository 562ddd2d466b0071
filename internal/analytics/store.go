package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is an appointment joined with the names analytics reports show.
type Record struct {
	ID           uuid.UUID
	Title        string
	Start        time.Time
	End          time.Time
	Status       string
	Revenue      float64
	ProviderID   uuid.UUID
	ProviderName string
	ClientName   string
	ServiceID    *uuid.UUID
	ServiceName  string
}

// Query selects appointments whose start lies in [From, To].
type Query struct {
	From       time.Time
	To         time.Time
	ProviderID *uuid.UUID
	// Statuses restricts the result when non-empty.
	Statuses []string
}

// Totals counts active clients and providers.
type Totals struct {
	Clients   int
	Providers int
}

// Store reads the data analytics reports are computed from.
type Store interface {
	Appointments(ctx context.Context, q Query) ([]Record, error)
	Totals(ctx context.Context) (Totals, error)
	// Current returns a non-cancelled appointment in progress at t, or nil.
	Current(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error)
	// Next returns the first non-cancelled appointment starting after t, or nil.
	Next(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error)
}
