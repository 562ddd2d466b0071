package chats

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MessageType identifies who wrote a message.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
)

const (
	// DefaultChatLimit and MaxChatLimit bound GET /api/chats.
	DefaultChatLimit = 20
	MaxChatLimit     = 100

	// DefaultMessageLimit and MaxMessageLimit bound GET /api/chats/{id}/messages.
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200

	titleRunes = 50
)

// Chat is a conversation session with the assistant.
type Chat struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MessageCount int        `json:"messageCount"`
	Messages     []*Message `json:"messages,omitempty"`
}

// Message is one turn of a chat.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	ChatID     uuid.UUID   `json:"chatId"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	ModelUsed  string      `json:"modelUsed"`
	TokensUsed string      `json:"tokensUsed"`
	// FunctionCalls holds the assistant's executed function calls, if any.
	FunctionCalls json.RawMessage `json:"functionCalls,omitempty"`
	CreatedAt     time.Time       `json:"timestamp"`
}

// ChatRequest is the body of POST and PUT /api/chats.
type ChatRequest struct {
	Title string `json:"title"`
}

// ListResult is a page of chats plus the total count.
type ListResult struct {
	Chats []*Chat `json:"chats"`
	Total int     `json:"total"`
}

// Page bounds a listing.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) clamp(def, max int) Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

// TitleFromMessage derives a chat title from its first message.
func TitleFromMessage(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= titleRunes {
		return message
	}
	return string([]rune(message)[:titleRunes]) + "..."
}

func window[T any](items []T, p Page) []T {
	if p.Skip >= len(items) {
		return nil
	}
	end := p.Skip + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Skip:end]
}
