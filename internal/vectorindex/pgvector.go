package vectorindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Pgvector stores chunks in the document_chunks table and searches with
// cosine distance. It shares the application's connection pool.
//
// Pgvector is safe for concurrent use by multiple goroutines.
type Pgvector struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// NewPgvector creates the PostgreSQL-backed index. dimension must match the
// embedding column of the document_chunks table.
func NewPgvector(pool *pgxpool.Pool, dimension int, logger *slog.Logger) *Pgvector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pgvector{
		pool:      pool,
		dimension: dimension,
		logger:    logger.With("component", "pgvector"),
	}
}

// Upsert writes chunks in a single transaction so a failed reindex never
// leaves a namespace half-populated.
func (p *Pgvector) Upsert(ctx context.Context, namespace string, chunks []Chunk) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Vector) != p.dimension {
			return fmt.Errorf("chunk %q has dimension %d, index expects %d: %w",
				c.ID, len(c.Vector), p.dimension, ErrDimensionMismatch)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			p.logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	const query = `
		INSERT INTO document_chunks (id, namespace, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET namespace = EXCLUDED.namespace,
		    chunk_index = EXCLUDED.chunk_index,
		    content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding`

	for _, c := range chunks {
		embedding := pgvector.NewVector(c.Vector)
		if _, err := tx.Exec(ctx, query, c.ID, namespace, c.Index, c.Content, embedding); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	p.logger.Debug("upserted chunks", "namespace", namespace, "count", len(chunks))
	return nil
}

// DeleteNamespace removes every chunk of a namespace.
func (p *Pgvector) DeleteNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM document_chunks WHERE namespace = $1`, namespace)
	if err != nil {
		return fmt.Errorf("deleting namespace %q: %w", namespace, err)
	}

	p.logger.Debug("deleted namespace", "namespace", namespace, "chunks", tag.RowsAffected())
	return nil
}

// Query runs a cosine similarity search within a namespace.
func (p *Pgvector) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Scored, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d: %w",
			len(vector), p.dimension, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	embedding := pgvector.NewVector(vector)

	const query = `
		SELECT id, content, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := p.pool.Query(ctx, query, embedding, namespace, k)
	if err != nil {
		return nil, fmt.Errorf("querying namespace %q: %w", namespace, err)
	}
	defer rows.Close()

	var results []Scored
	for rows.Next() {
		var s Scored
		var similarity float64
		if err := rows.Scan(&s.ID, &s.Content, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		s.Similarity = float32(similarity)
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	return results, nil
}

// Count returns the number of chunks stored in a namespace.
func (p *Pgvector) Count(ctx context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, ErrEmptyNamespace
	}

	var count int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE namespace = $1`, namespace).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting namespace %q: %w", namespace, err)
	}
	return int(count), nil
}
