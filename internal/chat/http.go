// ABOUTME: HTTP surface for the conversational service
// ABOUTME: JSON endpoints for chat management plus the SSE streaming endpoint

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/murmurhq/murmur/internal/auth"
	"github.com/murmurhq/murmur/internal/store"
)

// Handler serves the /chats endpoints. Requests reach it through the
// RequireUser middleware, so a user id is always present on the context.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates the chat HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With("component", "chat-http")}
}

// Routes registers the chat endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /chats", h.handleList)
	mux.HandleFunc("GET /chats/{id}/messages", h.handleMessages)
	mux.HandleFunc("DELETE /chats/{id}", h.handleDelete)
	mux.HandleFunc("DELETE /chats", h.handleDeleteAll)
	mux.HandleFunc("PATCH /chats/{id}", h.handleRetitle)
	mux.HandleFunc("POST /chats/stream", h.handleStream)
}

type chatView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type messageView struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service sentinels to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "chat belongs to another user")
	case errors.Is(err, ErrEmptyQuery):
		writeJSONError(w, http.StatusBadRequest, "query must not be blank")
	case errors.Is(err, ErrTooLong):
		writeJSONError(w, http.StatusBadRequest, "query too long")
	default:
		h.logger.Error("chat operation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	chats, err := h.svc.List(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, chatView{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	msgs, err := h.svc.Fetch(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	if err := h.svc.DeleteAll(r.Context(), owner); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type retitleRequest struct {
	Query string `json:"query"`
}

func (h *Handler) handleRetitle(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	var req retitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	title, err := h.svc.Retitle(r.Context(), owner, r.PathValue("id"), req.Query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

type streamRequest struct {
	ChatID string `json:"chat_id"`
	Query  string `json:"query"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// SSE headers go out with the first event, so validation failures
	// inside Stream can still answer with a plain JSON status.
	started := false
	emit := func(ev Event) {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		writeSSEEvent(w, flusher, ev)
	}

	if err := h.svc.Stream(r.Context(), owner, req.ChatID, req.Query, emit); err != nil {
		if started {
			// Should not happen: Stream only errors before emitting.
			h.logger.Error("stream failed after events were sent", "error", err)
			return
		}
		h.writeServiceError(w, err)
	}
}

// writeSSEEvent writes one event in SSE framing and flushes it out.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	flusher.Flush()
}
