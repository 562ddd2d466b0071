package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for service storage
type Repository interface {
	Create(ctx context.Context, req *CreateServiceRequest) (*Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	List(ctx context.Context, filter ListFilter) ([]*Service, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateServiceRequest) (*Service, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// InMemoryRepository keeps services in a map; used for local runs and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	services map[uuid.UUID]*Service
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{services: make(map[uuid.UUID]*Service)}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := req.service(uuid.New(), time.Now().UTC())

	r.mu.Lock()
	r.services[s.ID] = s
	r.mu.Unlock()

	out := *s
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	out := *s
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Service
	for _, s := range r.services {
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		if filter.ProviderID != nil && s.ProviderID != *filter.ProviderID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	req.Apply(s)
	s.UpdatedAt = time.Now().UTC()
	out := *s
	return &out, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[id]
	if !ok {
		return ErrServiceNotFound
	}
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
	return nil
}
