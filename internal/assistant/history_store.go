package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryTTL is how long a cached chat history survives.
const DefaultHistoryTTL = 24 * time.Hour

// errHistoryMiss reports that no history is cached for a chat.
var errHistoryMiss = errors.New("assistant: history not cached")

type historyStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func newHistoryStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *historyStore {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("crm.internal.assistant.history")
	}
	return &historyStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *historyStore) Save(ctx context.Context, chatID uuid.UUID, history []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "assistant.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(chatID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist history: %w", err)
	}
	return nil
}

func (s *historyStore) Load(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errHistoryMiss
		}
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to decode history: %w", err)
	}
	return history, nil
}

func historyKey(chatID uuid.UUID) string {
	return fmt.Sprintf("chat_history:%s", chatID)
}
