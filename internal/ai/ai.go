// Package ai defines the embedding and generation contracts and selects a
// provider at startup.
//
// Provider ladder:
//  1. OpenAI-compatible hosted API when an API key is configured.
//  2. Local Ollama server, probed with a short generation call.
//  3. Rule-based fallback: answers are synthesized from retrieval context
//     alone, and embeddings are unavailable.
//
// Both real providers are built on tmc/langchaingo, so the rest of the
// system sees one Generator/Embedder pair regardless of backend.
package ai

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedDocuments embeds a batch of texts, one vector per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Turn is one prior question/answer pair of conversational history.
type Turn struct {
	Question string
	Answer   string
}

// GenerateRequest carries everything a Generator needs for one completion.
type GenerateRequest struct {
	System      string // optional system instruction
	History     []Turn // prior turns, oldest first
	Prompt      string // the user-facing prompt (question + context)
	Temperature float64
	MaxTokens   int // 0 = provider default
}

// Generator produces a natural-language completion.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Provider bundles the selected backend.
// Embedder is nil when running on the rule-based fallback.
type Provider struct {
	Name      string
	Embedder  Embedder
	Generator Generator
}

// CanEmbed reports whether document indexing is possible.
func (p *Provider) CanEmbed() bool {
	return p != nil && p.Embedder != nil
}
