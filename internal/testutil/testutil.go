// Package testutil provides shared testing utilities: deterministic AI
// fakes, an in-memory vector index, and a PostgreSQL test container helper.
package testutil

import (
	"io"
	"log/slog"
)

// QuietLogger returns a logger that only reports warnings and above.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
