package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PGVectorStore implements VectorStoreProvider over Postgres with the
// pgvector extension, the primary vector store variant, batch-inserting
// embeddings and serving cosine ANN search. HNSW index parameters
// (m=16, ef_construction=64, cosine ops) are the database's own concern,
// configured by migration, not by this client.
type PGVectorStore struct {
	pool *pgxpool.Pool
}

// NewPGVectorStore creates a PGVectorStore.
func NewPGVectorStore(pool *pgxpool.Pool) *PGVectorStore {
	return &PGVectorStore{pool: pool}
}

// Upsert writes or overwrites embeddings for the given chunk ids.
func (s *PGVectorStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("providers.PGVectorStore.Upsert: mismatched slice lengths")
	}
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("providers.PGVectorStore.Upsert: marshal metadata: %w", err)
		}
		batch.Queue(`
			UPDATE document_chunks SET embedding = $1, text = $2, metadata = $3 WHERE id = $4`,
			pgvector.NewVector(vectors[i]), texts[i], meta, id,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range ids {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("providers.PGVectorStore.Upsert: %w", err)
		}
	}
	return nil
}

// Search runs ANN cosine search, returning score = 1 - cosine_distance.
func (s *PGVectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]VectorSearchResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, 1 - (c.embedding <=> $1) AS score, c.text, c.metadata
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.embedding IS NOT NULL AND d.status = 'ready'
		ORDER BY c.embedding <=> $1
		LIMIT $2`, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("providers.PGVectorStore.Search: %w", err)
	}
	defer rows.Close()

	var out []VectorSearchResult
	for rows.Next() {
		var r VectorSearchResult
		var meta []byte
		if err := rows.Scan(&r.ChunkID, &r.Score, &r.Text, &meta); err != nil {
			return nil, fmt.Errorf("providers.PGVectorStore.Search: scan: %w", err)
		}
		_ = json.Unmarshal(meta, &r.Metadata)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the document_chunks rows for the given ids, and with them
// their embeddings.
func (s *PGVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM document_chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("providers.PGVectorStore.Delete: %w", err)
	}
	return nil
}

var _ VectorStoreProvider = (*PGVectorStore)(nil)
