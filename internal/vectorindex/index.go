// Package vectorindex provides a namespaced vector index with two
// interchangeable backends: PostgreSQL+pgvector (default) and Qdrant.
//
// A namespace holds all chunks of one document. Reprocessing a document
// deletes its namespace before upserting, so indexing is idempotent.
package vectorindex

import (
	"context"
	"errors"
)

// Sentinel errors shared by both backends.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the configured index dimension. The index is never silently rebuilt;
	// the operator must recreate it deliberately.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyNamespace is returned when a namespace argument is blank.
	ErrEmptyNamespace = errors.New("namespace must not be empty")
)

// Chunk is one embedded slice of a document, ready for upsert.
type Chunk struct {
	ID      string // stable chunk identifier, e.g. "doc_<uuid>_chunk_3"
	Index   int    // position within the document
	Content string
	Vector  []float32
}

// Scored is a similarity search hit.
type Scored struct {
	ID         string
	Content    string
	Similarity float32 // cosine similarity, higher is closer
}

// Index is the namespaced vector index contract.
//
// Implementations are safe for concurrent use.
type Index interface {
	// Upsert inserts or replaces chunks within a namespace.
	Upsert(ctx context.Context, namespace string, chunks []Chunk) error

	// DeleteNamespace removes every chunk of a namespace. Deleting a
	// namespace that does not exist is not an error.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Query returns the k most similar chunks within a namespace,
	// ordered by descending similarity.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Scored, error)

	// Count returns the number of chunks stored in a namespace.
	Count(ctx context.Context, namespace string) (int, error)
}
