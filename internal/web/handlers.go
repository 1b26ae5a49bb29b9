package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/api"
	"github.com/chatscribe/chatscribe/internal/auth"
	"github.com/chatscribe/chatscribe/internal/rag"
	"github.com/chatscribe/chatscribe/internal/store"
)

// Template data shapes.

type formData struct {
	Error string
}

type dashboardData struct {
	Documents []*store.Document
	Sessions  []*store.Session
	Error     string
	Notice    string
}

type chatData struct {
	Session  *store.Session
	Document *store.Document
	Messages []*store.Message
}

// landing renders the front page, or sends signed-in users to their
// dashboard.
func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "landing", nil)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", formData{})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := s.cfg.Users.GetUserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("loading user", "error", err)
		}
		s.render(w, http.StatusUnauthorized, "login", formData{Error: "Incorrect username or password."})
		return
	}

	if !user.IsActive || auth.VerifyPassword(user.PasswordHash, password) != nil {
		s.render(w, http.StatusUnauthorized, "login", formData{Error: "Incorrect username or password."})
		return
	}

	s.signIn(w, r, user.ID)
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "signup", formData{})
}

func (s *Server) signupSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	switch {
	case len(username) < 3:
		s.render(w, http.StatusBadRequest, "signup", formData{Error: "Username must be at least 3 characters."})
		return
	case email == "" || !strings.Contains(email, "@"):
		s.render(w, http.StatusBadRequest, "signup", formData{Error: "A valid email address is required."})
		return
	case len(password) < 8:
		s.render(w, http.StatusBadRequest, "signup", formData{Error: "Password must be at least 8 characters."})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		s.render(w, http.StatusInternalServerError, "signup", formData{Error: "Something went wrong. Please try again."})
		return
	}

	user, err := s.cfg.Users.CreateUser(r.Context(), username, email, hash)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			s.render(w, http.StatusBadRequest, "signup", formData{Error: "That username is already registered."})
		case errors.Is(err, store.ErrEmailTaken):
			s.render(w, http.StatusBadRequest, "signup", formData{Error: "That email is already registered."})
		default:
			s.logger.Error("creating user", "error", err)
			s.render(w, http.StatusInternalServerError, "signup", formData{Error: "Something went wrong. Please try again."})
		}
		return
	}

	s.signIn(w, r, user.ID)
}

// signIn issues a token, sets the cookie, and redirects to the dashboard.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	token, err := s.cfg.Tokens.Issue(userID)
	if err != nil {
		s.logger.Error("issuing token", "user_id", userID, "error", err)
		s.render(w, http.StatusInternalServerError, "login", formData{Error: "Something went wrong. Please try again."})
		return
	}
	s.setAuthCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// dashboard lists the user's documents and chat sessions.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	docs, err := s.cfg.Documents.ListDocuments(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing documents", "error", err)
		s.render(w, http.StatusInternalServerError, "dashboard", dashboardData{Error: "Could not load your documents."})
		return
	}
	sessions, err := s.cfg.Sessions.ListSessions(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing sessions", "error", err)
		s.render(w, http.StatusInternalServerError, "dashboard", dashboardData{Error: "Could not load your chats."})
		return
	}

	data := dashboardData{Documents: docs, Sessions: sessions}
	switch r.URL.Query().Get("notice") {
	case "uploaded":
		data.Notice = "Document uploaded."
	case "deleted":
		data.Notice = "Document deleted."
	}
	s.render(w, http.StatusOK, "dashboard", data)
}

// uploadDocument handles the dashboard upload form.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.dashboardError(w, r, "Please choose a file to upload.")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !s.cfg.Files.IsAllowed(filename) {
		s.dashboardError(w, r, "Allowed file types: "+strings.Join(s.cfg.Files.AllowedExtensions(), ", "))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.dashboardError(w, r, "The upload is too large or could not be read.")
		return
	}

	processed, err := s.cfg.Files.Process(content, filename)
	if err != nil {
		s.logger.Warn("processing upload", "filename", filename, "error", err)
		s.dashboardError(w, r, "No text could be extracted from that file.")
		return
	}

	doc, err := s.cfg.Documents.CreateDocument(r.Context(), &store.Document{
		Filename:         processed.StorageName,
		OriginalFilename: filename,
		FilePath:         processed.Path,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		FileSize:         int64(len(content)),
		Content:          processed.Text,
		UserID:           userID,
	})
	if err != nil {
		s.logger.Error("creating document", "error", err)
		s.dashboardError(w, r, "Could not save the document.")
		return
	}

	if s.cfg.Indexer.CanIndex() {
		if _, err := s.cfg.Indexer.ProcessDocument(r.Context(), doc.ID, doc.Content); err != nil {
			s.logger.Error("indexing document", "document_id", doc.ID, "error", err)
		}
	}

	http.Redirect(w, r, "/dashboard?notice=uploaded", http.StatusSeeOther)
}

// deleteDocument handles the per-document delete form.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	doc, err := s.cfg.Documents.GetDocument(r.Context(), id, userID)
	if err != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := s.cfg.Documents.DeleteDocument(r.Context(), id, userID); err != nil {
		s.logger.Error("deleting document", "document_id", id, "error", err)
		s.dashboardError(w, r, "Could not delete the document.")
		return
	}
	if _, err := s.cfg.Files.Delete(doc.FilePath); err != nil {
		s.logger.Warn("deleting stored file", "path", doc.FilePath, "error", err)
	}
	if err := s.cfg.Indexer.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Warn("deleting document chunks", "document_id", id, "error", err)
	}

	http.Redirect(w, r, "/dashboard?notice=deleted", http.StatusSeeOther)
}

// startChat creates a session from the dashboard form and answers the
// first message.
func (s *Server) startChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	documentID, err := uuid.Parse(r.FormValue("document_id"))
	if err != nil {
		s.dashboardError(w, r, "Choose a document to chat with.")
		return
	}
	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		s.dashboardError(w, r, "Type a question to start the chat.")
		return
	}

	if _, err := s.cfg.Documents.GetDocument(r.Context(), documentID, userID); err != nil {
		s.dashboardError(w, r, "Document not found.")
		return
	}

	sess, err := s.cfg.Sessions.CreateSession(r.Context(), rag.Title(message), userID, documentID)
	if err != nil {
		s.logger.Error("creating session", "error", err)
		s.dashboardError(w, r, "Could not start the chat.")
		return
	}

	answer := s.cfg.Answerer.Answer(r.Context(), documentID, message, nil)
	if err := s.cfg.Sessions.AddTurn(r.Context(), sess.ID, message, answer); err != nil {
		s.logger.Error("persisting turn", "session_id", sess.ID, "error", err)
	}

	http.Redirect(w, r, "/chat/"+sess.ID.String(), http.StatusSeeOther)
}

// chatPage renders a session transcript with the message form.
func (s *Server) chatPage(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	sess, err := s.cfg.Sessions.GetSession(r.Context(), id, userID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	doc, err := s.cfg.Documents.GetDocument(r.Context(), sess.DocumentID, userID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	messages, err := s.cfg.Sessions.GetMessages(r.Context(), id, userID)
	if err != nil {
		s.logger.Error("loading messages", "session_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "chat", chatData{
		Session:  sess,
		Document: doc,
		Messages: messages,
	})
}

// sendMessage answers a follow-up question posted from the chat page.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Redirect(w, r, "/chat/"+id.String(), http.StatusSeeOther)
		return
	}

	sess, err := s.cfg.Sessions.GetSession(r.Context(), id, userID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	messages, err := s.cfg.Sessions.GetMessages(r.Context(), id, userID)
	if err != nil {
		s.logger.Error("loading history", "session_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	answer := s.cfg.Answerer.Answer(r.Context(), sess.DocumentID, message, api.HistoryTurns(messages, s.cfg.MaxHistory))
	if err := s.cfg.Sessions.AddTurn(r.Context(), id, message, answer); err != nil {
		s.logger.Error("persisting turn", "session_id", id, "error", err)
	}

	http.Redirect(w, r, "/chat/"+id.String(), http.StatusSeeOther)
}

// dashboardError re-renders the dashboard with an error banner, keeping
// the user's lists populated when they can still be loaded.
func (s *Server) dashboardError(w http.ResponseWriter, r *http.Request, msg string) {
	userID, _ := userIDFromContext(r.Context())

	data := dashboardData{Error: msg}
	if docs, err := s.cfg.Documents.ListDocuments(r.Context(), userID); err == nil {
		data.Documents = docs
	}
	if sessions, err := s.cfg.Sessions.ListSessions(r.Context(), userID); err == nil {
		data.Sessions = sessions
	}
	s.render(w, http.StatusBadRequest, "dashboard", data)
}
