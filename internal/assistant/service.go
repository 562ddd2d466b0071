package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

const (
	// DefaultHistoryLimit is how many earlier messages are sent to the model.
	DefaultHistoryLimit = 15

	// SimulatedModel marks replies produced without the model.
	SimulatedModel = "simulated"

	simulatedReply = "AI is in simulated mode. Please check GEMINI_API_KEY."
	apologyReply   = "Sorry, I couldn't reach the assistant just now. Please try again in a moment."
	emptyReply     = "Done! ✅"
)

// FunctionCallRecord is an executed function call as stored and returned.
type FunctionCallRecord struct {
	Function string         `json:"function"`
	Args     map[string]any `json:"args"`
	Result   FunctionResult `json:"result"`
}

// ChatResponse is the body of POST /api/ai/chat.
type ChatResponse struct {
	ChatID        uuid.UUID            `json:"chatId"`
	UserMessage   *chats.Message       `json:"userMessage"`
	AIMessage     *chats.Message       `json:"aiMessage"`
	FunctionCalls []FunctionCallRecord `json:"functionCalls"`
}

// ChatService runs one assistant turn: persist, prompt, execute, reply.
type ChatService struct {
	chats        chats.Repository
	llm          LLMClient
	dispatcher   *Dispatcher
	context      *ContextBuilder
	history      *historyStore
	historyLimit int
	logger       *logging.Logger
}

// ServiceOption configures a ChatService.
type ServiceOption func(*ChatService)

// WithLLM sets the model client. Without one, replies are simulated.
func WithLLM(llm LLMClient) ServiceOption {
	return func(s *ChatService) {
		s.llm = llm
	}
}

// WithHistoryCache caches model history in Redis for ttl.
func WithHistoryCache(client *redis.Client, ttl time.Duration) ServiceOption {
	return func(s *ChatService) {
		if client != nil {
			s.history = newHistoryStore(client, ttl, nil)
		}
	}
}

// WithHistoryLimit bounds the history sent to the model.
func WithHistoryLimit(n int) ServiceOption {
	return func(s *ChatService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithServiceLogger overrides the default logger.
func WithServiceLogger(logger *logging.Logger) ServiceOption {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewChatService wires the chat service.
func NewChatService(repo chats.Repository, dispatcher *Dispatcher, builder *ContextBuilder, opts ...ServiceOption) *ChatService {
	s := &ChatService{
		chats:        repo,
		dispatcher:   dispatcher,
		context:      builder,
		historyLimit: DefaultHistoryLimit,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send handles a user message in chatID, or in a new chat when chatID is nil.
func (s *ChatService) Send(ctx context.Context, chatID *uuid.UUID, message string) (*ChatResponse, error) {
	ctx, span := assistantTracer.Start(ctx, "assistant.send")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, chats.ErrEmptyMessage
	}

	chat, err := s.chatFor(ctx, chatID, message)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("crm.chat_id", chat.ID.String()))

	history, err := s.loadHistory(ctx, chat.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	userMsg, err := s.chats.AddMessage(ctx, &chats.Message{ChatID: chat.ID, Content: message, Type: chats.MessageUser})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	reply := s.complete(ctx, history, message)

	records := make([]FunctionCallRecord, 0, len(reply.FunctionCalls))
	for _, call := range reply.FunctionCalls {
		records = append(records, FunctionCallRecord{
			Function: call.Name,
			Args:     call.Args,
			Result:   s.dispatcher.Execute(ctx, call.Name, call.Args),
		})
	}
	text := ComposeReply(reply.Text, records)

	aiMsg := &chats.Message{ChatID: chat.ID, Content: text, Type: chats.MessageAI, ModelUsed: reply.Model}
	if reply.Usage.TotalTokens > 0 {
		aiMsg.TokensUsed = strconv.Itoa(int(reply.Usage.TotalTokens))
	}
	if len(records) > 0 {
		data, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		aiMsg.FunctionCalls = data
	}
	aiMsg, err = s.chats.AddMessage(ctx, aiMsg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.chats.Touch(ctx, chat.ID); err != nil {
		s.logger.Warn("failed to touch chat", "chat_id", chat.ID, "error", err)
	}

	s.saveHistory(ctx, chat.ID, append(history,
		ChatMessage{Role: ChatRoleUser, Content: message},
		ChatMessage{Role: ChatRoleAssistant, Content: text},
	))

	s.logger.Info("assistant turn completed",
		"chat_id", chat.ID,
		"model", reply.Model,
		"function_calls", len(records),
	)
	return &ChatResponse{ChatID: chat.ID, UserMessage: userMsg, AIMessage: aiMsg, FunctionCalls: records}, nil
}

func (s *ChatService) chatFor(ctx context.Context, chatID *uuid.UUID, message string) (*chats.Chat, error) {
	if chatID != nil {
		return s.chats.Get(ctx, *chatID, false)
	}
	return s.chats.Create(ctx, chats.TitleFromMessage(message))
}

// complete asks the model for a reply. A missing client or a model failure
// degrades to a canned reply.
func (s *ChatService) complete(ctx context.Context, history []ChatMessage, message string) LLMResponse {
	if s.llm == nil {
		return LLMResponse{Text: simulatedReply, Model: SimulatedModel}
	}
	var system []string
	if s.context != nil {
		prompt, err := s.context.SystemPrompt(ctx)
		if err != nil {
			s.logger.Error("failed to build assistant context", "error", err)
			return LLMResponse{Text: apologyReply, Model: SimulatedModel}
		}
		system = append(system, prompt)
	}
	messages := append(append([]ChatMessage{}, history...), ChatMessage{Role: ChatRoleUser, Content: message})
	resp, err := s.llm.Complete(ctx, LLMRequest{System: system, Messages: messages})
	if err != nil {
		s.logger.Error("assistant completion failed", "error", err)
		return LLMResponse{Text: apologyReply, Model: SimulatedModel}
	}
	if resp.Model == "" {
		resp.Model = DefaultModelID
	}
	return resp
}

func (s *ChatService) loadHistory(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error) {
	if s.history != nil {
		cached, err := s.history.Load(ctx, chatID)
		if err == nil {
			return s.trim(cached), nil
		}
		if !errors.Is(err, errHistoryMiss) {
			s.logger.Warn("history cache unavailable", "chat_id", chatID, "error", err)
		}
	}
	msgs, err := s.chats.RecentMessages(ctx, chatID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	history := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Type {
		case chats.MessageUser:
			history = append(history, ChatMessage{Role: ChatRoleUser, Content: m.Content})
		case chats.MessageAI:
			history = append(history, ChatMessage{Role: ChatRoleAssistant, Content: m.Content})
		}
	}
	return history, nil
}

func (s *ChatService) saveHistory(ctx context.Context, chatID uuid.UUID, history []ChatMessage) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, chatID, s.trim(history)); err != nil {
		s.logger.Warn("failed to cache history", "chat_id", chatID, "error", err)
	}
}

func (s *ChatService) trim(history []ChatMessage) []ChatMessage {
	if len(history) > s.historyLimit {
		return history[len(history)-s.historyLimit:]
	}
	return history
}

// ComposeReply joins the model text with each function result: the message
// on success, "❌ <error>" on failure. An empty reply becomes "Done! ✅".
func ComposeReply(text string, records []FunctionCallRecord) string {
	parts := make([]string, 0, len(records)+1)
	if text = strings.TrimSpace(text); text != "" {
		parts = append(parts, text)
	}
	for _, r := range records {
		switch {
		case r.Result.Success && r.Result.Message != "":
			parts = append(parts, r.Result.Message)
		case !r.Result.Success:
			msg := r.Result.Error
			if msg == "" {
				msg = "Something went wrong"
			}
			parts = append(parts, "❌ "+msg)
		}
	}
	if len(parts) == 0 {
		return emptyReply
	}
	return strings.Join(parts, "\n\n")
}
