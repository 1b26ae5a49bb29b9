package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/store"
)

// startChat uploads a document and opens a chat session against it.
func (ts *testServer) startChat(t *testing.T, token, firstMessage string) (docID, sessionID uuid.UUID) {
	t.Helper()

	up := ts.uploadFile(t, token, "doc.txt", []byte("Document content for chatting."))
	require.Equal(t, http.StatusCreated, up.Code, up.Body.String())
	var uploaded uploadResponse
	decode(t, up, &uploaded)

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/start", token, map[string]any{
		"document_id": uploaded.Document.ID,
		"message":     firstMessage,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp chatResponse
	decode(t, rr, &resp)
	return uploaded.Document.ID, resp.SessionID
}

func TestChatStart(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	docID, sessionID := ts.startChat(t, token, "What is this document about exactly, in short?")
	assert.NotEqual(t, uuid.Nil, sessionID)

	// The session is titled from the first five words of the message.
	sess := ts.store.sessions[sessionID]
	require.NotNil(t, sess)
	assert.Equal(t, "What is this document about", sess.Title)
	assert.Equal(t, docID, sess.DocumentID)

	// Both halves of the first turn are persisted.
	messages := ts.store.messages[sessionID]
	require.Len(t, messages, 2)
	assert.True(t, messages[0].IsUser)
	assert.Equal(t, "What is this document about exactly, in short?", messages[0].Content)
	assert.False(t, messages[1].IsUser)
	assert.Equal(t, "a grounded answer", messages[1].Content)
}

func TestChatStart_Validation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	t.Run("empty message", func(t *testing.T) {
		rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/start", token, map[string]any{
			"document_id": uuid.New(), "message": "   ",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "message_required", errorCode(t, rr))
	})

	t.Run("message too long", func(t *testing.T) {
		rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/start", token, map[string]any{
			"document_id": uuid.New(), "message": strings.Repeat("x", 4001),
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "message_too_long", errorCode(t, rr))
	})

	t.Run("missing document", func(t *testing.T) {
		rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/start", token, map[string]any{
			"message": "hello",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "missing_document", errorCode(t, rr))
	})

	t.Run("unknown document", func(t *testing.T) {
		rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/start", token, map[string]any{
			"document_id": uuid.New(), "message": "hello",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", errorCode(t, rr))
	})
}

func TestChatMessage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	_, sessionID := ts.startChat(t, token, "First question?")

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/message", token, map[string]any{
		"session_id": sessionID,
		"message":    "A follow-up question?",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp chatResponse
	decode(t, rr, &resp)
	assert.Equal(t, "a grounded answer", resp.Response)
	assert.Equal(t, sessionID, resp.SessionID)

	// The first turn was replayed as history.
	require.Len(t, ts.answerer.lastHistory, 1)
	assert.Equal(t, "First question?", ts.answerer.lastHistory[0].Question)
	assert.Equal(t, "a grounded answer", ts.answerer.lastHistory[0].Answer)

	assert.Len(t, ts.store.messages[sessionID], 4)
}

func TestChatMessage_UnknownSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/message", token, map[string]any{
		"session_id": uuid.New(), "message": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorCode(t, rr))
}

func TestChatMessage_OtherUsersSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	mallory := ts.signup(t, "mallory")

	_, sessionID := ts.startChat(t, alice, "Private question?")

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/chat/message", mallory, map[string]any{
		"session_id": sessionID, "message": "let me in",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	rr := ts.doJSON(t, http.MethodGet, "/api/v1/chat/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rr.Body.String())

	_, sessionID := ts.startChat(t, token, "A question?")

	rr = ts.doJSON(t, http.MethodGet, "/api/v1/chat/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	decode(t, rr, &resp)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, sessionID, resp.Sessions[0].ID)
	assert.Equal(t, "A question?", resp.Sessions[0].Title)
}

func TestSessionMessages(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	_, sessionID := ts.startChat(t, token, "A question?")

	rr := ts.doJSON(t, http.MethodGet, "/api/v1/chat/sessions/"+sessionID.String()+"/messages", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Messages []messageResponse `json:"messages"`
	}
	decode(t, rr, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, int32(1), resp.Messages[0].Sequence)
	assert.True(t, resp.Messages[0].IsUser)
	assert.Equal(t, int32(2), resp.Messages[1].Sequence)
	assert.False(t, resp.Messages[1].IsUser)

	t.Run("invalid id", func(t *testing.T) {
		rr := ts.doJSON(t, http.MethodGet, "/api/v1/chat/sessions/nope/messages", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid_id", errorCode(t, rr))
	})
}

func TestHistoryTurns(t *testing.T) {
	t.Parallel()

	msg := func(content string, isUser bool) *store.Message {
		return &store.Message{Content: content, IsUser: isUser}
	}

	t.Run("pairs questions and answers", func(t *testing.T) {
		t.Parallel()

		turns := HistoryTurns([]*store.Message{
			msg("q1", true), msg("a1", false),
			msg("q2", true), msg("a2", false),
		}, 0)

		assert.Equal(t, []ai.Turn{
			{Question: "q1", Answer: "a1"},
			{Question: "q2", Answer: "a2"},
		}, turns)
	})

	t.Run("limit keeps most recent messages", func(t *testing.T) {
		t.Parallel()

		turns := HistoryTurns([]*store.Message{
			msg("q1", true), msg("a1", false),
			msg("q2", true), msg("a2", false),
		}, 2)

		assert.Equal(t, []ai.Turn{{Question: "q2", Answer: "a2"}}, turns)
	})

	t.Run("leading answer after truncation", func(t *testing.T) {
		t.Parallel()

		// An odd cut can leave an answer without its question.
		turns := HistoryTurns([]*store.Message{
			msg("q1", true), msg("a1", false),
			msg("q2", true), msg("a2", false),
		}, 3)

		assert.Equal(t, []ai.Turn{
			{Answer: "a1"},
			{Question: "q2", Answer: "a2"},
		}, turns)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, HistoryTurns(nil, 10))
	})
}
