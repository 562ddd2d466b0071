package chats

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for chat and message storage
type Repository interface {
	Create(ctx context.Context, title string) (*Chat, error)
	// Get returns the chat with its message count; withMessages also loads
	// every message in order.
	Get(ctx context.Context, id uuid.UUID, withMessages bool) (*Chat, error)
	List(ctx context.Context, page Page) (*ListResult, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*Chat, error)
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddMessage(ctx context.Context, msg *Message) (*Message, error)
	ListMessages(ctx context.Context, chatID uuid.UUID, page Page) ([]*Message, error)
	// RecentMessages returns the newest n messages in chronological order.
	RecentMessages(ctx context.Context, chatID uuid.UUID, n int) ([]*Message, error)
}

// InMemoryRepository keeps chats in maps; used for local runs and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	chats    map[uuid.UUID]*Chat
	messages map[uuid.UUID][]*Message
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		chats:    make(map[uuid.UUID]*Chat),
		messages: make(map[uuid.UUID][]*Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, title string) (*Chat, error) {
	now := r.now()
	c := &Chat{ID: uuid.New(), Title: strings.TrimSpace(title), CreatedAt: now, UpdatedAt: now}

	r.mu.Lock()
	r.chats[c.ID] = c
	r.mu.Unlock()

	out := *c
	return &out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id uuid.UUID, withMessages bool) (*Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chats[id]
	if !ok {
		return nil, ErrChatNotFound
	}
	out := r.view(c)
	if withMessages {
		out.Messages = copyMessages(r.messages[id])
	}
	return out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, page Page) (*ListResult, error) {
	page = page.clamp(DefaultChatLimit, MaxChatLimit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Chat, 0, len(r.chats))
	for _, c := range r.chats {
		all = append(all, r.view(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	chats := window(all, page)
	if chats == nil {
		chats = []*Chat{}
	}
	return &ListResult{Chats: chats, Total: len(all)}, nil
}

func (r *InMemoryRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chats[id]
	if !ok {
		return nil, ErrChatNotFound
	}
	if title = strings.TrimSpace(title); title != "" {
		c.Title = title
		c.UpdatedAt = r.now()
	}
	return r.view(c), nil
}

func (r *InMemoryRepository) Touch(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chats[id]
	if !ok {
		return ErrChatNotFound
	}
	c.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[id]; !ok {
		return ErrChatNotFound
	}
	delete(r.chats, id)
	delete(r.messages, id)
	return nil
}

func (r *InMemoryRepository) AddMessage(ctx context.Context, msg *Message) (*Message, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyMessage
	}
	stored := *msg
	stored.ID = uuid.New()
	stored.CreatedAt = r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[msg.ChatID]; !ok {
		return nil, ErrChatNotFound
	}
	r.messages[msg.ChatID] = append(r.messages[msg.ChatID], &stored)

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) ListMessages(ctx context.Context, chatID uuid.UUID, page Page) ([]*Message, error) {
	page = page.clamp(DefaultMessageLimit, MaxMessageLimit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.chats[chatID]; !ok {
		return nil, ErrChatNotFound
	}
	out := copyMessages(window(r.messages[chatID], page))
	if out == nil {
		out = []*Message{}
	}
	return out, nil
}

func (r *InMemoryRepository) RecentMessages(ctx context.Context, chatID uuid.UUID, n int) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.chats[chatID]; !ok {
		return nil, ErrChatNotFound
	}
	msgs := r.messages[chatID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return copyMessages(msgs), nil
}

func (r *InMemoryRepository) view(c *Chat) *Chat {
	out := *c
	out.MessageCount = len(r.messages[c.ID])
	out.Messages = nil
	return &out
}

func copyMessages(in []*Message) []*Message {
	if in == nil {
		return nil
	}
	out := make([]*Message, 0, len(in))
	for _, m := range in {
		cp := *m
		out = append(out, &cp)
	}
	return out
}
