// Package web serves the browser UI: server-rendered pages for signup,
// login, the document dashboard, and chat. Authentication uses the same
// JWTs as the API, carried in an HttpOnly cookie.
package web

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/api"
)

// tokenCookie names the session cookie holding the JWT.
const tokenCookie = "chatscribe_token"

// Context key for the authenticated user.
type userIDKey struct{}

var ctxKeyUserID = userIDKey{}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(uuid.UUID)
	return id, ok
}

// ServerConfig contains dependencies for the web server. Store and
// pipeline access goes through the same consumer interfaces as the API.
type ServerConfig struct {
	Logger         *slog.Logger
	Users          api.UserStore
	Documents      api.DocumentStore
	Sessions       api.SessionStore
	Files          api.FileStore
	Indexer        api.Indexer
	Answerer       api.Answerer
	Tokens         api.TokenIssuer
	MaxUploadBytes int64
	MaxHistory     int
	SecureCookies  bool // Set the Secure flag on auth cookies (HTTPS deployments)
}

// Server is the HTML page server.
type Server struct {
	mux       *http.ServeMux
	templates map[string]*template.Template
	cfg       ServerConfig
	logger    *slog.Logger
}

// NewServer creates the web server with all page routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		mux:       http.NewServeMux(),
		templates: templates,
		cfg:       cfg,
		logger:    logger,
	}

	s.mux.HandleFunc("GET /{$}", s.landing)
	s.mux.HandleFunc("GET /login", s.loginPage)
	s.mux.HandleFunc("POST /login", s.loginSubmit)
	s.mux.HandleFunc("GET /signup", s.signupPage)
	s.mux.HandleFunc("POST /signup", s.signupSubmit)
	s.mux.HandleFunc("POST /logout", s.logout)

	s.mux.Handle("GET /dashboard", s.requireUser(s.dashboard))
	s.mux.Handle("POST /documents/upload", s.requireUser(s.uploadDocument))
	s.mux.Handle("POST /documents/{id}/delete", s.requireUser(s.deleteDocument))
	s.mux.Handle("POST /chat/start", s.requireUser(s.startChat))
	s.mux.Handle("GET /chat/{id}", s.requireUser(s.chatPage))
	s.mux.Handle("POST /chat/{id}", s.requireUser(s.sendMessage))

	return s, nil
}

// ServeHTTP implements http.Handler with security headers applied.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s
}

// currentUser extracts and verifies the auth cookie. Returns uuid.Nil and
// false for anonymous visitors.
func (s *Server) currentUser(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, false
	}
	userID, err := s.cfg.Tokens.Verify(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// requireUser redirects anonymous visitors to the login page.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setAuthCookie stores the JWT in an HttpOnly cookie scoped to the site.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.Tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookie expires the auth cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
