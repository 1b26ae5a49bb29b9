package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/chatscribe/chatscribe/internal/ai"
)

// MockEmbedder produces deterministic unit vectors derived from the input
// text, so equal texts embed identically across runs and distinct texts
// almost never collide.
type MockEmbedder struct {
	Dimension int

	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMockEmbedder creates a deterministic embedder of the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{Dimension: dimension}
}

// Calls reports how many embedding calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(text), nil
}

// vector hashes the text into a repeatable pseudo-random vector.
func (m *MockEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, m.Dimension)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int64(seed>>33)) / float32(1<<31)
	}
	return v
}

// ScriptedGenerator returns queued responses in order, then repeats the
// last one. It records every request it receives.
type ScriptedGenerator struct {
	Responses []string

	// Err, when set, is returned by every call.
	Err error

	mu       sync.Mutex
	requests []ai.GenerateRequest
}

func (g *ScriptedGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)

	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Responses) == 0 {
		return "", errors.New("scripted generator has no responses")
	}

	i := len(g.requests) - 1
	if i >= len(g.Responses) {
		i = len(g.Responses) - 1
	}
	return g.Responses[i], nil
}

// Requests returns a copy of the requests seen so far.
func (g *ScriptedGenerator) Requests() []ai.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.GenerateRequest(nil), g.requests...)
}

// NewMockProvider bundles the fakes as an ai.Provider.
func NewMockProvider(dimension int, responses ...string) *ai.Provider {
	return &ai.Provider{
		Name:      "mock",
		Embedder:  NewMockEmbedder(dimension),
		Generator: &ScriptedGenerator{Responses: responses},
	}
}
