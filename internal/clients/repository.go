package clients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for client storage
type Repository interface {
	Create(ctx context.Context, req *CreateClientRequest) (*Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context, filter ListFilter) ([]*Client, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateClientRequest) (*Client, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// FindByName matches case-insensitively on the full name.
	FindByName(ctx context.Context, name string) (*Client, error)
}

// InMemoryRepository keeps clients in a map; used for local runs and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: make(map[uuid.UUID]*Client)}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := req.client(uuid.New(), time.Now().UTC())

	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()

	out := *c
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	out := *c
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*Client
	for _, c := range r.clients {
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if needle != "" && !matches(c, needle) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

func matches(c *Client, needle string) bool {
	return strings.Contains(strings.ToLower(c.Name), needle) ||
		strings.Contains(strings.ToLower(c.Phone), needle) ||
		strings.Contains(strings.ToLower(c.Email), needle)
}

func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	req.Apply(c)
	c.UpdatedAt = time.Now().UTC()
	out := *c
	return &out, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return ErrClientNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) FindByName(ctx context.Context, name string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.clients {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrClientNotFound
}
