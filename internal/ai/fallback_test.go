package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback_GenerateWithContext(t *testing.T) {
	t.Parallel()

	prompt := fmt.Sprintf(
		"Based on the following context from the document, please answer the question.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		"The warranty lasts two years.\nIt covers manufacturing defects.",
		"How long is the warranty?",
	)

	p := NewFallback()
	got, err := p.Generator.Generate(context.Background(), GenerateRequest{Prompt: prompt})
	require.NoError(t, err)

	assert.Contains(t, got, "Based on the document context:")
	assert.Contains(t, got, "The warranty lasts two years.")
	assert.Contains(t, got, "It covers manufacturing defects.")
	assert.NotContains(t, got, "How long is the warranty?")
}

func TestFallback_GenerateWithoutContext(t *testing.T) {
	t.Parallel()

	p := NewFallback()
	got, err := p.Generator.Generate(context.Background(), GenerateRequest{Prompt: "just a bare question"})
	require.NoError(t, err)
	assert.Equal(t, fallbackHelpText, got)
}

func TestFallback_NoEmbedder(t *testing.T) {
	t.Parallel()

	p := NewFallback()
	assert.Equal(t, "fallback", p.Name)
	assert.Nil(t, p.Embedder)
	assert.False(t, p.CanEmbed())
}

func TestExtractContextSection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt string
		want   string
		ok     bool
	}{
		{
			name:   "simple",
			prompt: "Context:\nline one\nline two\n\nQuestion: q",
			want:   "line one line two",
			ok:     true,
		},
		{
			name:   "caps at three lines",
			prompt: "Context:\na\nb\nc\nd\n\nQuestion: q",
			want:   "a b c",
			ok:     true,
		},
		{
			name:   "skips blank lines",
			prompt: "Context:\n\n  first  \n\nsecond\n\nQuestion: q",
			want:   "first second",
			ok:     true,
		},
		{
			name:   "no context marker",
			prompt: "Question: q",
			ok:     false,
		},
		{
			name:   "empty context",
			prompt: "Context:\n\nQuestion: q",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := extractContextSection(tt.prompt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
