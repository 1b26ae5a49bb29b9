package ai

import (
	"context"
	"strings"
)

// fallbackHelpText is the answer when no retrieval context can be found in
// the prompt.
const fallbackHelpText = "I can help you with questions about the uploaded " +
	"document. No language model is currently available, so answers are " +
	"limited to excerpts of the document text."

// fallbackContextLines caps how much of the retrieval context is echoed.
const fallbackContextLines = 3

// Fallback is a rule-based Generator used when no model is reachable.
// It answers by echoing the leading lines of the retrieval context embedded
// in the prompt, mimicking an extractive answer.
type Fallback struct{}

// NewFallback creates the rule-based provider. It has no Embedder, so
// document indexing is unavailable in this mode.
func NewFallback() *Provider {
	return &Provider{
		Name:      "fallback",
		Generator: &Fallback{},
	}
}

// Generate implements Generator without calling any model.
func (*Fallback) Generate(_ context.Context, req GenerateRequest) (string, error) {
	context, ok := extractContextSection(req.Prompt)
	if !ok || context == "" {
		return fallbackHelpText, nil
	}
	return "Based on the document context: " + context, nil
}

// extractContextSection pulls the lines between "Context:" and "Question:"
// out of a QA prompt.
func extractContextSection(prompt string) (string, bool) {
	lines := strings.Split(prompt, "\n")
	var contextLines []string
	inContext := false

	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "context:"):
			inContext = true
		case strings.HasPrefix(lower, "question:"):
			inContext = false
		case inContext:
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				contextLines = append(contextLines, trimmed)
			}
		}
	}

	if len(contextLines) == 0 {
		return "", false
	}
	if len(contextLines) > fallbackContextLines {
		contextLines = contextLines[:fallbackContextLines]
	}
	return strings.Join(contextLines, " "), true
}
