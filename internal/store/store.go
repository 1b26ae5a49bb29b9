// Package store persists users, documents, chat sessions, and chat
// messages in PostgreSQL.
//
// All reads are scoped by the owning user's ID so one user can never see
// another user's documents or conversations.
package store

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages relational persistence over a pgx connection pool.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a new Store instance.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}
