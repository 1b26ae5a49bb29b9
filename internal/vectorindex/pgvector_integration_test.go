package vectorindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatscribe/chatscribe/internal/testutil"
	"github.com/chatscribe/chatscribe/internal/vectorindex"
)

// chunk builds a test chunk with a padded vector of the given dimension.
func chunk(id string, index int, content string, lead ...float32) vectorindex.Chunk {
	v := make([]float32, 1536)
	copy(v, lead)
	return vectorindex.Chunk{ID: id, Index: index, Content: content, Vector: v}
}

func TestPgvectorIntegration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	idx := vectorindex.NewPgvector(testDB.Pool, 1536, testutil.QuietLogger())

	ns := "doc_11111111-2222-3333-4444-555555555555"

	t.Run("upsert and count", func(t *testing.T) {
		err := idx.Upsert(ctx, ns, []vectorindex.Chunk{
			chunk(ns+"_chunk_0", 0, "alpha content", 1, 0, 0),
			chunk(ns+"_chunk_1", 1, "beta content", 0, 1, 0),
			chunk(ns+"_chunk_2", 2, "gamma content", 0, 0, 1),
		})
		require.NoError(t, err)

		count, err := idx.Count(ctx, ns)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("query ranks by similarity", func(t *testing.T) {
		query := make([]float32, 1536)
		query[0] = 1

		results, err := idx.Query(ctx, ns, query, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, ns+"_chunk_0", results[0].ID)
		assert.Equal(t, "alpha content", results[0].Content)
		assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-4)
		assert.Less(t, results[1].Similarity, results[0].Similarity)
	})

	t.Run("query other namespace is empty", func(t *testing.T) {
		query := make([]float32, 1536)
		query[0] = 1

		results, err := idx.Query(ctx, "doc_other", query, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("upsert updates existing chunk", func(t *testing.T) {
		err := idx.Upsert(ctx, ns, []vectorindex.Chunk{
			chunk(ns+"_chunk_0", 0, "alpha revised", 1, 0, 0),
		})
		require.NoError(t, err)

		count, err := idx.Count(ctx, ns)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		query := make([]float32, 1536)
		query[0] = 1
		results, err := idx.Query(ctx, ns, query, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alpha revised", results[0].Content)
	})

	t.Run("delete namespace", func(t *testing.T) {
		require.NoError(t, idx.DeleteNamespace(ctx, ns))

		count, err := idx.Count(ctx, ns)
		require.NoError(t, err)
		assert.Zero(t, count)

		// Deleting an absent namespace is not an error.
		assert.NoError(t, idx.DeleteNamespace(ctx, ns))
	})
}
