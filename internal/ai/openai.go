package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures the hosted provider.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
}

// openAIProvider wraps a langchaingo OpenAI client as Generator.
type openAIProvider struct {
	llm    *openai.LLM
	logger *slog.Logger
}

// NewOpenAI creates the hosted provider: chat completions plus embeddings
// from the same client.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating openai embedder: %w", err)
	}

	return &Provider{
		Name:     "openai",
		Embedder: embedder,
		Generator: &openAIProvider{
			llm:    client,
			logger: logger.With("component", "openai"),
		},
	}, nil
}

func (p *openAIProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return generateWithModel(ctx, p.llm, req)
}

// generateWithModel runs one completion against any langchaingo model,
// replaying history as chat messages.
func generateWithModel(ctx context.Context, model llms.Model, req GenerateRequest) (string, error) {
	messages := make([]llms.MessageContent, 0, 2*len(req.History)+2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, turn := range req.History {
		if turn.Question != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, turn.Question))
		}
		if turn.Answer != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, turn.Answer))
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
