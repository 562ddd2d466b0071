package assistant

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/chats"
	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// MessageRequest is the body of POST /api/ai/chat.
type MessageRequest struct {
	Message string     `json:"message"`
	ChatID  *uuid.UUID `json:"chat_id"`
}

// Handler serves the assistant endpoints.
type Handler struct {
	service *ChatService
	logger  *logging.Logger
}

// NewHandler creates an assistant handler.
func NewHandler(service *ChatService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the assistant endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/models", h.Models)
	return r
}

// Chat handles POST /api/ai/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.service.Send(r.Context(), req.ChatID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrEmptyMessage):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chats.ErrChatNotFound):
			httpjson.Error(w, http.StatusNotFound, "Chat not found")
		default:
			h.logger.Error("assistant chat failed", "error", err)
			httpjson.Error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	httpjson.Write(w, http.StatusOK, resp)
}

// Models handles GET /api/ai/models
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]any{
		"models":  AvailableModels,
		"default": DefaultModelID,
	})
}
