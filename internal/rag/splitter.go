// Package rag implements the retrieval pipeline: documents are split into
// overlapping chunks, embedded, and indexed per-document; questions retrieve
// the closest chunks and are answered by the configured model with the
// retrieved text as context.
package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// SplitterConfig controls chunking. Overlap keeps sentences that straddle a
// chunk boundary retrievable from either side.
type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Splitter cuts document text into overlapping chunks along natural
// boundaries (paragraphs, then lines, then words) before falling back to
// character positions.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// NewSplitter validates the configuration and builds the splitter.
func NewSplitter(cfg SplitterConfig) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be non-negative and smaller than chunk size %d",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
	}, nil
}

// Split returns the chunks of text in document order. Empty input yields no
// chunks.
func (s *Splitter) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}
