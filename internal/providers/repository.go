package providers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for provider storage
type Repository interface {
	Create(ctx context.Context, req *CreateProviderRequest) (*Provider, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, filter ListFilter) ([]*Provider, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateProviderRequest) (*Provider, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// FindActiveByName matches case-insensitively on the stored name.
	FindActiveByName(ctx context.Context, name string) (*Provider, error)
}

// InMemoryRepository keeps providers in a map; used for local runs and tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]*Provider
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		providers: make(map[uuid.UUID]*Provider),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateProviderRequest) (*Provider, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := req.provider(uuid.New(), time.Now().UTC())

	r.mu.Lock()
	r.providers[p.ID] = p
	r.mu.Unlock()

	out := *p
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	out := *p
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateProviderRequest) (*Provider, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	req.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	out := *p
	return &out, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrProviderNotFound
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) FindActiveByName(ctx context.Context, name string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.IsActive && strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrProviderNotFound
}
