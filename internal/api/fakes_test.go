package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/store"
)

// fakeStore is an in-memory implementation of UserStore, DocumentStore, and
// SessionStore.
type fakeStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*store.User
	docs     map[uuid.UUID]*store.Document
	sessions map[uuid.UUID]*store.Session
	messages map[uuid.UUID][]*store.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*store.User),
		docs:     make(map[uuid.UUID]*store.Document),
		sessions: make(map[uuid.UUID]*store.Session),
		messages: make(map[uuid.UUID][]*store.Message),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, username, email, passwordHash string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			return nil, store.ErrUsernameTaken
		}
		if u.Email == email {
			return nil, store.ErrEmailTaken
		}
	}

	u := &store.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *store.Document) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	created := *doc
	created.ID = uuid.New()
	created.UploadedAt = time.Now()
	f.docs[created.ID] = &created

	out := created
	return &out, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id, userID uuid.UUID) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok || doc.UserID != userID {
		return nil, store.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeStore) ListDocuments(_ context.Context, userID uuid.UUID) ([]*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var docs []*store.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			copied := *d
			docs = append(docs, &copied)
		}
	}
	return docs, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok || doc.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeStore) CreateSession(_ context.Context, title string, userID, documentID uuid.UUID) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &store.Session{
		ID:         uuid.New(),
		Title:      title,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		UserID:     userID,
		DocumentID: documentID,
	}
	f.sessions[s.ID] = s

	copied := *s
	return &copied, nil
}

func (f *fakeStore) GetSession(_ context.Context, id, userID uuid.UUID) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, store.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) ListSessions(_ context.Context, userID uuid.UUID) ([]*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sessions []*store.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			copied := *s
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

func (f *fakeStore) GetMessages(ctx context.Context, sessionID, userID uuid.UUID) ([]*store.Message, error) {
	if _, err := f.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeStore) AddTurn(_ context.Context, sessionID uuid.UUID, question, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}

	seq := int32(len(f.messages[sessionID]))
	f.messages[sessionID] = append(f.messages[sessionID],
		&store.Message{
			ID: uuid.New(), SessionID: sessionID, Content: question,
			IsUser: true, SequenceNumber: seq + 1, CreatedAt: time.Now(),
		},
		&store.Message{
			ID: uuid.New(), SessionID: sessionID, Content: answer,
			IsUser: false, SequenceNumber: seq + 2, CreatedAt: time.Now(),
		},
	)
	s.UpdatedAt = time.Now()
	return nil
}

// stubIndexer records indexing calls.
type stubIndexer struct {
	mu         sync.Mutex
	canIndex   bool
	processErr error
	chunks     int
	processed  []uuid.UUID
	deleted    []uuid.UUID
}

func (s *stubIndexer) CanIndex() bool { return s.canIndex }

func (s *stubIndexer) ProcessDocument(_ context.Context, documentID uuid.UUID, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processErr != nil {
		return 0, s.processErr
	}
	s.processed = append(s.processed, documentID)
	return s.chunks, nil
}

func (s *stubIndexer) DeleteDocument(_ context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, documentID)
	return nil
}

// stubAnswerer returns fixed text and records the history it was given.
type stubAnswerer struct {
	mu          sync.Mutex
	answer      string
	summary     string
	lastHistory []ai.Turn
}

func (s *stubAnswerer) Answer(_ context.Context, _ uuid.UUID, _ string, history []ai.Turn) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastHistory = history
	return s.answer
}

func (s *stubAnswerer) Summarize(_ context.Context, _ string) string {
	return s.summary
}
