package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/auth"
	"github.com/chatscribe/chatscribe/internal/store"
)

// TokenIssuer mints and validates access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
	Verify(token string) (uuid.UUID, error)
	TTL() time.Duration
}

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 8
)

type authHandler struct {
	users  UserStore
	tokens TokenIssuer
	logger *slog.Logger
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// signup handles POST /api/v1/auth/signup.
func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body", h.logger)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if code, msg := validateSignup(req); code != "" {
		WriteError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hashing password", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not create user", h.logger)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			WriteError(w, http.StatusBadRequest, "username_taken", "username already registered", h.logger)
		case errors.Is(err, store.ErrEmailTaken):
			WriteError(w, http.StatusBadRequest, "email_taken", "email already registered", h.logger)
		default:
			h.logger.Error("creating user", "error", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "could not create user", h.logger)
		}
		return
	}

	h.issueToken(w, user)
}

// login handles POST /api/v1/auth/login.
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body", h.logger)
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same response as a wrong password so usernames cannot be
			// enumerated.
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect username or password", h.logger)
			return
		}
		h.logger.Error("loading user", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not log in", h.logger)
		return
	}

	if !user.IsActive {
		WriteError(w, http.StatusUnauthorized, "account_disabled", "account is disabled", h.logger)
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect username or password", h.logger)
		return
	}

	h.issueToken(w, user)
}

// me handles GET /api/v1/auth/me.
func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "missing bearer token", h.logger)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The token outlived the account.
			WriteError(w, http.StatusUnauthorized, "invalid_token", "account no longer exists", h.logger)
			return
		}
		h.logger.Error("loading user", "user_id", userID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not load account", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

func (h *authHandler) issueToken(w http.ResponseWriter, user *store.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issuing token", "user_id", user.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not issue token", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
	})
}

// validateSignup returns an error code and message, or empty strings when
// the request is valid.
func validateSignup(req signupRequest) (code, msg string) {
	switch {
	case len(req.Username) < minUsernameLen || len(req.Username) > maxUsernameLen:
		return "invalid_username", "username must be 3-64 characters"
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return "invalid_email", "a valid email address is required"
	case len(req.Password) < minPasswordLen:
		return "invalid_password", "password must be at least 8 characters"
	}
	return "", ""
}
