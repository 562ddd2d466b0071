package chats

import "errors"

var (
	// ErrChatNotFound is returned when a chat is not found
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when a message has no content
	ErrEmptyMessage = errors.New("message content is required")
)
