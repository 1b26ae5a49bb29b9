package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig configures the local provider.
type OllamaConfig struct {
	Host           string // e.g. http://localhost:11434
	Model          string
	EmbeddingModel string
}

// probeTimeout bounds the startup availability check. A local Ollama that
// does not answer within this window is treated as absent.
const probeTimeout = 5 * time.Second

// ollamaProvider wraps a langchaingo Ollama client as Generator.
type ollamaProvider struct {
	llm    *ollama.LLM
	logger *slog.Logger
}

// NewOllama creates the local provider. Chat and embeddings use separate
// models served by the same Ollama instance.
func NewOllama(cfg OllamaConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chat, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	embedClient, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedClient, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating ollama embedder: %w", err)
	}

	return &Provider{
		Name:     "ollama",
		Embedder: embedder,
		Generator: &ollamaProvider{
			llm:    chat,
			logger: logger.With("component", "ollama"),
		},
	}, nil
}

// Probe checks that the Ollama server answers a minimal generation call.
func (p *Provider) Probe(ctx context.Context) error {
	gen, ok := p.Generator.(*ollamaProvider)
	if !ok {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := gen.Generate(probeCtx, GenerateRequest{Prompt: "ping", MaxTokens: 1})
	if err != nil {
		return fmt.Errorf("probing ollama: %w", err)
	}
	return nil
}

func (p *ollamaProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return generateWithModel(ctx, p.llm, req)
}
