// Package api implements the JSON HTTP API: authentication, document
// upload and management, and document-grounded chat.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/fileproc"
	"github.com/chatscribe/chatscribe/internal/store"
)

// Store operations the handlers depend on. Interfaces are defined here, by
// the consumer, so handler tests can substitute in-memory fakes.

// UserStore provides account persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*store.User, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// DocumentStore provides document persistence.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *store.Document) (*store.Document, error)
	GetDocument(ctx context.Context, id, userID uuid.UUID) (*store.Document, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]*store.Document, error)
	DeleteDocument(ctx context.Context, id, userID uuid.UUID) error
}

// SessionStore provides chat session and message persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, title string, userID, documentID uuid.UUID) (*store.Session, error)
	GetSession(ctx context.Context, id, userID uuid.UUID) (*store.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*store.Session, error)
	GetMessages(ctx context.Context, sessionID, userID uuid.UUID) ([]*store.Message, error)
	AddTurn(ctx context.Context, sessionID uuid.UUID, question, answer string) error
}

// Indexer runs the document indexing pipeline.
type Indexer interface {
	CanIndex() bool
	ProcessDocument(ctx context.Context, documentID uuid.UUID, text string) (int, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

// Answerer generates chat answers and document summaries.
type Answerer interface {
	Answer(ctx context.Context, documentID uuid.UUID, question string, history []ai.Turn) string
	Summarize(ctx context.Context, content string) string
}

// FileStore persists uploaded files and extracts their text.
type FileStore interface {
	IsAllowed(filename string) bool
	AllowedExtensions() []string
	Process(content []byte, originalFilename string) (*fileproc.Processed, error)
	Delete(path string) (bool, error)
}

// ServerConfig contains everything needed to build the API server.
type ServerConfig struct {
	Logger         *slog.Logger
	Users          UserStore     // Required
	Documents      DocumentStore // Required
	Sessions       SessionStore  // Required
	Files          FileStore     // Required
	Indexer        Indexer       // Required
	Answerer       Answerer      // Required
	Tokens         TokenIssuer   // Required
	Pool           *pgxpool.Pool // Optional: nil disables pool ping in /ready
	CORSOrigins    []string
	TrustProxy     bool    // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RatePerSecond  float64 // Rate limiter refill per IP (0 = default 1/s)
	RateBurst      int     // Rate limiter burst size per IP (0 = default 60)
	MaxUploadBytes int64   // Upload size cap (0 = default 10 MiB)
	MaxHistory     int     // Turns replayed to the model per question
}

const defaultMaxUploadBytes = 10 << 20

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes and middleware
// configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Users == nil, cfg.Documents == nil, cfg.Sessions == nil:
		return nil, errors.New("store is required")
	case cfg.Files == nil:
		return nil, errors.New("file store is required")
	case cfg.Indexer == nil, cfg.Answerer == nil:
		return nil, errors.New("pipeline is required")
	case cfg.Tokens == nil:
		return nil, errors.New("token issuer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	ah := &authHandler{users: cfg.Users, tokens: cfg.Tokens, logger: logger}
	dh := &documentHandler{
		documents: cfg.Documents,
		files:     cfg.Files,
		indexer:   cfg.Indexer,
		answerer:  cfg.Answerer,
		maxBytes:  maxUpload,
		logger:    logger,
	}
	ch := &chatHandler{
		documents:  cfg.Documents,
		sessions:   cfg.Sessions,
		answerer:   cfg.Answerer,
		maxHistory: cfg.MaxHistory,
		logger:     logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/signup", ah.signup)
	mux.HandleFunc("POST /api/v1/auth/login", ah.login)
	mux.HandleFunc("GET /api/v1/auth/me", ah.me)

	mux.HandleFunc("POST /api/v1/documents", dh.upload)
	mux.HandleFunc("GET /api/v1/documents", dh.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", dh.get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.delete)
	mux.HandleFunc("POST /api/v1/documents/{id}/reprocess", dh.reprocess)
	mux.HandleFunc("POST /api/v1/documents/{id}/summarize", dh.summarize)

	mux.HandleFunc("POST /api/v1/chat/start", ch.start)
	mux.HandleFunc("POST /api/v1/chat/message", ch.message)
	mux.HandleFunc("GET /api/v1/chat/sessions", ch.listSessions)
	mux.HandleFunc("GET /api/v1/chat/sessions/{id}/messages", ch.sessionMessages)

	rl := newIPLimiter(rateLimitSettings{PerSecond: cfg.RatePerSecond, Burst: cfg.RateBurst})

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID runs before Logging so request_id is available in log
	// attributes. CORS runs before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.Tokens, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
