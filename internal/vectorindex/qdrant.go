package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrantBatchSize caps points per upsert request to bound request size.
const qdrantBatchSize = 64

// pointIDSpace seeds deterministic point UUIDs. Qdrant only accepts uint64
// or UUID point identifiers, so chunk IDs are hashed into stable UUIDs.
var pointIDSpace = uuid.MustParse("8d6f2a1e-3c47-4b9a-9f10-6e5d4c3b2a19")

// Qdrant stores chunks in a single Qdrant collection, with the namespace
// carried as a payload field and enforced by filters on every operation.
//
// Qdrant is safe for concurrent use by multiple goroutines.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// QdrantConfig holds connection settings for the Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  int
}

// NewQdrant connects to Qdrant and ensures the collection exists with the
// configured dimension and cosine distance.
func NewQdrant(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	q := &Qdrant{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     logger.With("component", "qdrant"),
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// ensureCollection creates the collection if missing. An existing collection
// with a different dimension is an operator error; vectors of the wrong
// length are rejected per-operation rather than rebuilding the collection.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing qdrant collections: %w", err)
	}
	if slices.Contains(collections, q.collection) {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection %q: %w", q.collection, err)
	}

	q.logger.Info("created qdrant collection",
		"collection", q.collection, "dimension", q.dimension)
	return nil
}

// Close releases the underlying gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// Upsert writes chunks in batches. Wait is set so data is durable before
// the call returns.
func (q *Qdrant) Upsert(ctx context.Context, namespace string, chunks []Chunk) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Vector) != q.dimension {
			return fmt.Errorf("chunk %q has dimension %d, index expects %d: %w",
				c.ID, len(c.Vector), q.dimension, ErrDimensionMismatch)
		}
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    c.ID,
				"namespace":   namespace,
				"chunk_index": int64(c.Index),
				"content":     c.Content,
			}),
		})
	}

	wait := true
	for start := 0; start < len(points); start += qdrantBatchSize {
		end := min(start+qdrantBatchSize, len(points))
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         points[start:end],
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("upserting batch [%d:%d] into %q: %w", start, end, q.collection, err)
		}
	}

	q.logger.Debug("upserted chunks", "namespace", namespace, "count", len(chunks))
	return nil
}

// DeleteNamespace removes every point whose namespace payload matches.
func (q *Qdrant) DeleteNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}

	wait := true
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("deleting namespace %q: %w", namespace, err)
	}

	q.logger.Debug("deleted namespace", "namespace", namespace)
	return nil
}

// Query runs a filtered similarity search within a namespace.
func (q *Qdrant) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Scored, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	if len(vector) != q.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d: %w",
			len(vector), q.dimension, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         namespaceFilter(namespace),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying namespace %q: %w", namespace, err)
	}

	results := make([]Scored, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		results = append(results, Scored{
			ID:         payload["chunk_id"].GetStringValue(),
			Content:    payload["content"].GetStringValue(),
			Similarity: p.GetScore(),
		})
	}
	return results, nil
}

// Count returns the exact number of points in a namespace.
func (q *Qdrant) Count(ctx context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, ErrEmptyNamespace
	}

	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting namespace %q: %w", namespace, err)
	}
	return int(count), nil
}

// namespaceFilter matches points belonging to one namespace.
func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("namespace", namespace),
		},
	}
}

// pointID derives the stable UUID point identifier for a chunk ID.
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointIDSpace, []byte(chunkID)).String()
}
