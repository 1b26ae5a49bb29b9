package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/chatscribe/chatscribe/internal/vectorindex"
)

// MemoryIndex is an in-memory vectorindex.Index for tests. It ranks by
// cosine similarity like the real backends.
type MemoryIndex struct {
	mu         sync.Mutex
	namespaces map[string][]vectorindex.Chunk

	// UpsertErr/QueryErr/DeleteErr, when set, are returned by the
	// corresponding operations.
	UpsertErr error
	QueryErr  error
	DeleteErr error
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string][]vectorindex.Chunk)}
}

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, chunks []vectorindex.Chunk) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if namespace == "" {
		return vectorindex.ErrEmptyNamespace
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.namespaces[namespace]
	for _, c := range chunks {
		replaced := false
		for i, old := range existing {
			if old.ID == c.ID {
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
	}
	m.namespaces[namespace] = existing
	return nil
}

func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if namespace == "" {
		return vectorindex.ErrEmptyNamespace
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, k int) ([]vectorindex.Scored, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if namespace == "" {
		return nil, vectorindex.ErrEmptyNamespace
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chunks := m.namespaces[namespace]
	scored := make([]vectorindex.Scored, 0, len(chunks))
	for _, c := range chunks {
		scored = append(scored, vectorindex.Scored{
			ID:         c.ID,
			Content:    c.Content,
			Similarity: cosine(vector, c.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryIndex) Count(_ context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, vectorindex.ErrEmptyNamespace
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.namespaces[namespace]), nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
