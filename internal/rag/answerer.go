package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/vectorindex"
)

// Canned responses. Question answering degrades to fixed text instead of
// surfacing errors to the chat transcript.
const (
	answerNoContext = "I couldn't find relevant information in the document to answer your question."
	answerEmpty     = "I'm sorry, I couldn't generate a response based on the document content."
	answerError     = "I'm sorry, I encountered an error while processing your question."

	summaryEmpty = "Unable to generate summary."
	summaryError = "Error generating summary."

	defaultTitle = "New Chat"
)

// summaryTemperature trades a little determinism for more natural phrasing.
const summaryTemperature = 0.3

const (
	titleMaxWords = 5
	titleMaxChars = 50
)

// AnswererConfig tunes answer generation.
type AnswererConfig struct {
	// Temperature for question answering. Zero keeps answers grounded in
	// the retrieved text.
	Temperature float64

	// MaxHistoryMessages caps how many prior turns are replayed to the
	// model per question.
	MaxHistoryMessages int

	// SummaryMaxChars truncates document text before summarization.
	SummaryMaxChars int
}

// Answerer produces chat answers, document summaries, and session titles.
//
// Answerer is safe for concurrent use by multiple goroutines.
type Answerer struct {
	provider *ai.Provider
	pipeline *Pipeline
	cfg      AnswererConfig
	logger   *slog.Logger
}

// NewAnswerer wires answer generation on top of the retrieval pipeline.
func NewAnswerer(provider *ai.Provider, pipeline *Pipeline, cfg AnswererConfig, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		provider: provider,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger.With("component", "answerer"),
	}
}

// Answer retrieves context for the question and generates a grounded
// answer. Retrieval and generation failures produce canned answers rather
// than errors, so a chat session never breaks mid-conversation.
func (a *Answerer) Answer(ctx context.Context, documentID uuid.UUID, question string, history []ai.Turn) string {
	results, err := a.pipeline.Retrieve(ctx, documentID, question)
	switch {
	case errors.Is(err, ErrEmbeddingUnavailable):
		// No embedder means nothing was indexed. The generator still gets
		// the bare question so a rule-based provider can reply with its
		// guidance instead of an error.
		results = nil
	case err != nil:
		a.logger.Warn("retrieval failed",
			"document_id", documentID, "error", err)
		return answerError
	case len(results) == 0:
		return answerNoContext
	}

	if n := a.cfg.MaxHistoryMessages; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	prompt := question
	if len(results) > 0 {
		prompt = qaPrompt(results, question)
	}

	answer, err := a.provider.Generator.Generate(ctx, ai.GenerateRequest{
		History:     history,
		Prompt:      prompt,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		a.logger.Warn("answer generation failed",
			"document_id", documentID, "provider", a.provider.Name, "error", err)
		return answerError
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return answerEmpty
	}
	return answer
}

// Summarize generates a summary of the document text, truncated to the
// configured limit first so the prompt stays within model context.
func (a *Answerer) Summarize(ctx context.Context, content string) string {
	if max := a.cfg.SummaryMaxChars; max > 0 {
		content = truncateRunes(content, max)
	}

	prompt := fmt.Sprintf(
		"Please provide a comprehensive summary of the following document:\n\n%s\n\nSummary:",
		content)

	summary, err := a.provider.Generator.Generate(ctx, ai.GenerateRequest{
		Prompt:      prompt,
		Temperature: summaryTemperature,
	})
	if err != nil {
		a.logger.Warn("summarization failed",
			"provider", a.provider.Name, "error", err)
		return summaryError
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return summaryEmpty
	}
	return summary
}

// Title derives a session title from the first message: its first five
// words, capped at fifty characters.
func Title(firstMessage string) string {
	words := strings.Fields(firstMessage)
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	title := strings.Join(words, " ")
	if runes := []rune(title); len(runes) > titleMaxChars {
		title = string(runes[:titleMaxChars-3]) + "..."
	}
	if title == "" {
		return defaultTitle
	}
	return title
}

// truncateRunes shortens s to at most n runes, appending "..." when it had
// to cut. Counting runes rather than bytes keeps multibyte text intact.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// qaPrompt renders retrieved chunks and the question in the fixed
// Context/Question/Answer layout the generators (including the rule-based
// fallback) expect.
func qaPrompt(results []vectorindex.Scored, question string) string {
	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}

	return fmt.Sprintf(
		"Based on the following context from the document, please answer the question.\n\n"+
			"Context:\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(contents, "\n"), question)
}
