package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// SelectConfig drives provider selection.
type SelectConfig struct {
	// Provider is one of "auto", "openai", "ollama", "none".
	Provider string
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
}

// Select picks the provider per the configured ladder.
//
// "auto" prefers the hosted API when an API key is present, then a
// reachable Ollama, then the rule-based fallback. Explicit providers fail
// hard when unavailable instead of silently degrading.
func Select(ctx context.Context, cfg SelectConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return NewOpenAI(cfg.OpenAI, logger)

	case "ollama":
		p, err := NewOllama(cfg.Ollama, logger)
		if err != nil {
			return nil, err
		}
		if err := p.Probe(ctx); err != nil {
			return nil, err
		}
		return p, nil

	case "none":
		logger.Warn("AI disabled by configuration, using rule-based fallback")
		return NewFallback(), nil
	}

	// auto
	if cfg.OpenAI.APIKey != "" {
		p, err := NewOpenAI(cfg.OpenAI, logger)
		if err == nil {
			logger.Info("using hosted AI provider", "provider", p.Name)
			return p, nil
		}
		logger.Warn("hosted provider unavailable, trying ollama", "error", err)
	}

	if p, err := NewOllama(cfg.Ollama, logger); err == nil {
		if probeErr := p.Probe(ctx); probeErr == nil {
			logger.Info("using local AI provider", "provider", p.Name, "host", cfg.Ollama.Host)
			return p, nil
		} else {
			logger.Warn("ollama not reachable", "host", cfg.Ollama.Host, "error", probeErr)
		}
	}

	logger.Warn("no AI provider reachable, using rule-based fallback; document indexing disabled")
	return NewFallback(), nil
}
