package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

// Repository defines the interface for appointment storage. It also feeds
// the availability checker with busy intervals.
type Repository interface {
	availability.AppointmentLister

	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)
	Update(ctx context.Context, a *Appointment) (*Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error

	// InProviderLock runs fn while holding the provider's booking lock so a
	// check followed by a write cannot interleave with another booking.
	InProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error
}

// InMemoryRepository keeps appointments in a map; used for local runs and tests.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*Appointment

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[uuid.UUID]*Appointment),
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	stored := *a
	stored.ID = uuid.New()
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now

	r.mu.Lock()
	r.appointments[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Appointment
	for _, a := range r.appointments {
		if !filter.matches(a) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.appointments[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	stored := *a
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	r.appointments[a.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) ListBusy(ctx context.Context, providerID uuid.UUID, window availability.Interval) ([]availability.Busy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []availability.Busy
	for _, a := range r.appointments {
		if a.ProviderID != providerID || !a.Status.Occupies() {
			continue
		}
		iv := availability.Interval{Start: a.Start, End: a.End}
		if !iv.Overlaps(window) {
			continue
		}
		out = append(out, availability.Busy{ID: a.ID, Title: a.Title, Interval: iv})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out, nil
}

func (r *InMemoryRepository) InProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	r.locksMu.Lock()
	lock, ok := r.locks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[providerID] = lock
	}
	r.locksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
