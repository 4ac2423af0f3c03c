package providers

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantVectorStore is the second concrete VectorStoreProvider variant
//,
// grounded in 54b3r-tfai-go's internal/rag/qdrant.go. Demonstrates that the
// query pipeline and ingestion orchestrator depend only on the
// VectorStoreProvider contract, never on pgvector specifically.
type QdrantVectorStore struct {
	client     *qdrant.Client
	collection string
}

// QdrantConfig holds connection parameters for a Qdrant-backed store.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	VectorSize uint64
	APIKey     string
	UseTLS     bool
}

// NewQdrantVectorStore connects to Qdrant and ensures the target
// collection exists, creating it with cosine distance if absent.
func NewQdrantVectorStore(ctx context.Context, cfg QdrantConfig) (*QdrantVectorStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("providers.NewQdrantVectorStore: connect: %w", err)
	}

	store := &QdrantVectorStore{client: client, collection: cfg.Collection}
	if err := store.ensureCollection(ctx, cfg.VectorSize); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *QdrantVectorStore) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("providers.QdrantVectorStore.ensureCollection: check: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("providers.QdrantVectorStore.ensureCollection: create %q: %w", s.collection, err)
	}
	return nil
}

// Upsert stores chunk embeddings as Qdrant points keyed by chunk id, with
// text and metadata folded into the point payload.
func (s *QdrantVectorStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("providers.QdrantVectorStore.Upsert: mismatched slice lengths")
	}
	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		payload := map[string]any{"text": texts[i]}
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("providers.QdrantVectorStore.Upsert: %w", err)
	}
	return nil
}

// Search runs a cosine ANN query and returns Qdrant's point score as is;
// under Distance_Cosine that score is the cosine similarity, the same
// quantity the pgvector variant computes as 1 - cosine distance.
func (s *QdrantVectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]VectorSearchResult, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("providers.QdrantVectorStore.Search: %w", err)
	}

	out := make([]VectorSearchResult, 0, len(results))
	for _, r := range results {
		res := VectorSearchResult{
			ChunkID:  r.Id.GetUuid(),
			Score:    float64(r.Score),
			Metadata: make(map[string]any),
		}
		if p := r.Payload; p != nil {
			if v, ok := p["text"]; ok {
				res.Text = v.GetStringValue()
			}
			for k, v := range p {
				if k != "text" {
					res.Metadata[k] = v.GetStringValue()
				}
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// Delete removes points by chunk id.
func (s *QdrantVectorStore) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("providers.QdrantVectorStore.Delete: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantVectorStore) Close() error {
	return s.client.Close()
}

var _ VectorStoreProvider = (*QdrantVectorStore)(nil)
