package chats

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/httpjson"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

// Handler handles HTTP requests for chat sessions
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new chats handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the chat endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{chatID}", h.Get)
	r.Put("/{chatID}", h.Update)
	r.Delete("/{chatID}", h.Delete)
	r.Get("/{chatID}/messages", h.Messages)
	return r
}

// List handles GET /api/chats?skip=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.List(r.Context(), Page{
		Skip:  httpjson.QueryInt(r, "skip", 0),
		Limit: httpjson.QueryInt(r, "limit", DefaultChatLimit),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, result)
}

// Create handles POST /api/chats
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	c, err := h.repo.Create(r.Context(), req.Title)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, c)
}

// Get handles GET /api/chats/{chatID}; messages are included.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chatID(w, r)
	if !ok {
		return
	}
	c, err := h.repo.Get(r.Context(), id, true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if c.Messages == nil {
		c.Messages = []*Message{}
	}
	httpjson.Write(w, http.StatusOK, c)
}

// Update handles PUT /api/chats/{chatID}; only the title can change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chatID(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.repo.UpdateTitle(r.Context(), id, req.Title)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, c)
}

// Delete handles DELETE /api/chats/{chatID}; messages are removed with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chatID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("chat deleted", "chat_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /api/chats/{chatID}/messages?skip=&limit=
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chatID(w, r)
	if !ok {
		return
	}
	msgs, err := h.repo.ListMessages(r.Context(), id, Page{
		Skip:  httpjson.QueryInt(r, "skip", 0),
		Limit: httpjson.QueryInt(r, "limit", DefaultMessageLimit),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, msgs)
}

func (h *Handler) chatID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid chat id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChatNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyMessage):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("chat request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}
