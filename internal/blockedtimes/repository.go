package blockedtimes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for blocked time storage
type Repository interface {
	Create(ctx context.Context, b *BlockedTime) (*BlockedTime, error)
	GetByID(ctx context.Context, id uuid.UUID) (*BlockedTime, error)
	List(ctx context.Context, filter ListFilter) ([]*BlockedTime, error)
	Update(ctx context.Context, b *BlockedTime) (*BlockedTime, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// InMemoryRepository keeps blocked times in a map; used for local runs and tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	blocks map[uuid.UUID]*BlockedTime
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{blocks: make(map[uuid.UUID]*BlockedTime)}
}

func (r *InMemoryRepository) Create(ctx context.Context, b *BlockedTime) (*BlockedTime, error) {
	stored := *b
	stored.ID = uuid.New()
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now

	r.mu.Lock()
	r.blocks[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*BlockedTime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil, ErrBlockedTimeNotFound
	}
	out := *b
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*BlockedTime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*BlockedTime
	for _, b := range r.blocks {
		if !filter.matches(b) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, b *BlockedTime) (*BlockedTime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.blocks[b.ID]
	if !ok {
		return nil, ErrBlockedTimeNotFound
	}
	stored := *b
	stored.ProviderID = existing.ProviderID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	r.blocks[b.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[id]
	if !ok {
		return ErrBlockedTimeNotFound
	}
	b.IsActive = false
	b.UpdatedAt = time.Now().UTC()
	return nil
}
