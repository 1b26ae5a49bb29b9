package store

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Document is an uploaded file with its extracted text.
type Document struct {
	ID               uuid.UUID
	Filename         string // unique storage name
	OriginalFilename string
	FilePath         string
	FileType         string // extension without the dot, e.g. "pdf"
	FileSize         int64
	Content          string // extracted plain text
	UploadedAt       time.Time
	UserID           uuid.UUID
}

// Session is a conversation bound to one document.
type Session struct {
	ID         uuid.UUID
	Title      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	UserID     uuid.UUID
	DocumentID uuid.UUID
}

// Message is a single conversation turn half.
// IsUser is true for the question, false for the answer.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Content        string
	IsUser         bool
	SequenceNumber int32
	CreatedAt      time.Time
}
