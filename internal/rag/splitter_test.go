package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSplitter(SplitterConfig{ChunkSize: 0, ChunkOverlap: 0})
	assert.Error(t, err)

	_, err = NewSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: -1})
	assert.Error(t, err)

	_, err = NewSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.Error(t, err)

	_, err = NewSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	assert.NoError(t, err)
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	s, err := NewSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	chunks, err := s.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	s, err := NewSplitter(SplitterConfig{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	chunks, err := s.Split("A short paragraph that fits in one chunk.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph that fits in one chunk.", chunks[0])
}

func TestSplit_LongTextMultipleChunks(t *testing.T) {
	t.Parallel()

	s, err := NewSplitter(SplitterConfig{ChunkSize: 120, ChunkOverlap: 20})
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Paragraph text with enough words to overflow a chunk.\n\n")
	}

	chunks, err := s.Split(sb.String())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.NotEmpty(t, c, "chunk %d", i)
		assert.LessOrEqual(t, len(c), 120, "chunk %d", i)
	}
}
