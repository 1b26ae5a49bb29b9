package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/rag"
	"github.com/chatscribe/chatscribe/internal/store"
)

const maxMessageLen = 4000

type chatHandler struct {
	documents  DocumentStore
	sessions   SessionStore
	answerer   Answerer
	maxHistory int
	logger     *slog.Logger
}

type chatStartRequest struct {
	DocumentID uuid.UUID `json:"document_id"`
	Message    string    `json:"message"`
}

type chatMessageRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Message   string    `json:"message"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	SessionID uuid.UUID `json:"session_id"`
}

type sessionResponse struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	DocumentID uuid.UUID `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Sequence  int32     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// start handles POST /api/v1/chat/start: creates a session against a
// document, titled from the first message, and answers it.
func (h *chatHandler) start(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	var req chatStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body", h.logger)
		return
	}

	message, ok := h.validMessage(w, req.Message)
	if !ok {
		return
	}
	if req.DocumentID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "missing_document", "document_id required", h.logger)
		return
	}

	if _, err := h.documents.GetDocument(r.Context(), req.DocumentID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
			return
		}
		h.logger.Error("loading document", "document_id", req.DocumentID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not start chat", h.logger)
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), rag.Title(message), userID, req.DocumentID)
	if err != nil {
		h.logger.Error("creating session", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not start chat", h.logger)
		return
	}

	answer := h.answerer.Answer(r.Context(), req.DocumentID, message, nil)

	if err := h.sessions.AddTurn(r.Context(), sess.ID, message, answer); err != nil {
		h.logger.Error("persisting turn", "session_id", sess.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not save messages", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: answer, SessionID: sess.ID})
}

// message handles POST /api/v1/chat/message: answers a follow-up question
// in an existing session, replaying prior turns as model history.
func (h *chatHandler) message(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body", h.logger)
		return
	}

	message, ok := h.validMessage(w, req.Message)
	if !ok {
		return
	}
	if req.SessionID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "missing_session", "session_id required", h.logger)
		return
	}

	sess, err := h.sessions.GetSession(r.Context(), req.SessionID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		h.logger.Error("loading session", "session_id", req.SessionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not load session", h.logger)
		return
	}

	messages, err := h.sessions.GetMessages(r.Context(), sess.ID, userID)
	if err != nil {
		h.logger.Error("loading history", "session_id", sess.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not load history", h.logger)
		return
	}

	answer := h.answerer.Answer(r.Context(), sess.DocumentID, message, HistoryTurns(messages, h.maxHistory))

	if err := h.sessions.AddTurn(r.Context(), sess.ID, message, answer); err != nil {
		h.logger.Error("persisting turn", "session_id", sess.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not save messages", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: answer, SessionID: sess.ID})
}

// listSessions handles GET /api/v1/chat/sessions.
func (h *chatHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not list sessions", h.logger)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			Title:      s.Title,
			DocumentID: s.DocumentID,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// sessionMessages handles GET /api/v1/chat/sessions/{id}/messages.
func (h *chatHandler) sessionMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return
	}

	messages, err := h.sessions.GetMessages(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		h.logger.Error("listing messages", "session_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not list messages", h.logger)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ID,
			Content:   m.Content,
			IsUser:    m.IsUser,
			Sequence:  m.SequenceNumber,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

// validMessage trims and bounds a chat message, writing the error response
// itself when invalid.
func (h *chatHandler) validMessage(w http.ResponseWriter, message string) (string, bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		WriteError(w, http.StatusBadRequest, "message_required", "message required", h.logger)
		return "", false
	}
	if len(message) > maxMessageLen {
		WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
		return "", false
	}
	return message, true
}

// HistoryTurns pairs stored messages into question/answer turns, keeping
// only the most recent limit messages. Shared with the web UI handlers.
func HistoryTurns(messages []*store.Message, limit int) []ai.Turn {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	var turns []ai.Turn
	for _, m := range messages {
		if m.IsUser {
			turns = append(turns, ai.Turn{Question: m.Content})
			continue
		}
		if len(turns) == 0 || turns[len(turns)-1].Answer != "" {
			turns = append(turns, ai.Turn{Answer: m.Content})
			continue
		}
		turns[len(turns)-1].Answer = m.Content
	}
	return turns
}
