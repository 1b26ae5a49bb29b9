package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/vectorindex"
)

// ErrEmbeddingUnavailable is returned when indexing or retrieval is
// attempted while no embedding-capable provider is configured.
var ErrEmbeddingUnavailable = errors.New("no embedding provider available")

// Namespace returns the vector index namespace for a document.
func Namespace(documentID uuid.UUID) string {
	return "doc_" + documentID.String()
}

// chunkID returns the stable identifier of one chunk within a document.
func chunkID(documentID uuid.UUID, index int) string {
	return fmt.Sprintf("doc_%s_chunk_%d", documentID, index)
}

// Pipeline indexes documents into the vector index and retrieves context
// for questions.
//
// Pipeline is safe for concurrent use by multiple goroutines.
type Pipeline struct {
	index    vectorindex.Index
	embedder ai.Embedder
	splitter *Splitter
	topK     int
	logger   *slog.Logger
}

// NewPipeline wires the pipeline. embedder may be nil when no
// embedding-capable provider exists; indexing and retrieval then fail with
// ErrEmbeddingUnavailable.
func NewPipeline(index vectorindex.Index, embedder ai.Embedder, splitter *Splitter, topK int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		index:    index,
		embedder: embedder,
		splitter: splitter,
		topK:     topK,
		logger:   logger.With("component", "rag"),
	}
}

// CanIndex reports whether an embedding provider is configured.
func (p *Pipeline) CanIndex() bool {
	return p.embedder != nil
}

// ProcessDocument splits, embeds, and indexes a document's text, replacing
// any previous index state for that document. It returns the number of
// chunks indexed. Running it again on the same document is idempotent.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID uuid.UUID, text string) (int, error) {
	if p.embedder == nil {
		return 0, ErrEmbeddingUnavailable
	}

	parts, err := p.splitter.Split(text)
	if err != nil {
		return 0, err
	}

	namespace := Namespace(documentID)

	if len(parts) == 0 {
		// A document whose text became empty still clears stale chunks.
		if err := p.index.DeleteNamespace(ctx, namespace); err != nil {
			return 0, err
		}
		return 0, nil
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, parts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(parts), err)
	}
	if len(vectors) != len(parts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(parts))
	}

	chunks := make([]vectorindex.Chunk, len(parts))
	for i, content := range parts {
		chunks[i] = vectorindex.Chunk{
			ID:      chunkID(documentID, i),
			Index:   i,
			Content: content,
			Vector:  vectors[i],
		}
	}

	// Delete before upsert so reprocessing never leaves chunks from a
	// longer previous version of the document behind.
	if err := p.index.DeleteNamespace(ctx, namespace); err != nil {
		return 0, err
	}
	if err := p.index.Upsert(ctx, namespace, chunks); err != nil {
		return 0, err
	}

	p.logger.Info("indexed document",
		"document_id", documentID, "chunks", len(chunks), "text_length", len(text))
	return len(chunks), nil
}

// DeleteDocument removes a document's chunks from the index.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	return p.index.DeleteNamespace(ctx, Namespace(documentID))
}

// Retrieve embeds the question and returns the closest chunks of the
// document, ordered by descending similarity.
func (p *Pipeline) Retrieve(ctx context.Context, documentID uuid.UUID, question string) ([]vectorindex.Scored, error) {
	if p.embedder == nil {
		return nil, ErrEmbeddingUnavailable
	}

	vector, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := p.index.Query(ctx, Namespace(documentID), vector, p.topK)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("retrieved context",
		"document_id", documentID, "results", len(results))
	return results, nil
}
