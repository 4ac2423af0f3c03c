package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/sophia-systems/csbot/internal/model"
)

// ChunkRepo persists DocumentChunk rows in pgx.Batch inserts, keyed by
// document id and a strictly increasing chunk index.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

// InsertPending bulk-inserts chunk rows with embedding and keyword_indexed
// left null/false, as produced by ingestion step 4 (text + metadata only).
func (r *ChunkRepo) InsertPending(ctx context.Context, chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		meta, err := marshalMeta(c.Metadata)
		if err != nil {
			return fmt.Errorf("repository.ChunkRepo.InsertPending: marshal metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO document_chunks (id, document_id, chunk_index, text, keyword_indexed, metadata, created_at)
			VALUES ($1, $2, $3, $4, false, $5, $6)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Text, []byte(meta), c.CreatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("repository.ChunkRepo.InsertPending: %w", err)
		}
	}
	return nil
}

// SetEmbeddings attaches embeddings to chunks in batches, matching ingestion
// step 5's "in batches of 100, compute embeddings and attach to chunks."
func (r *ChunkRepo) SetEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("repository.ChunkRepo.SetEmbeddings: id count (%d) != vector count (%d)", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		batch.Queue(`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
			pgvector.NewVector(vectors[i]), id,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ids {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("repository.ChunkRepo.SetEmbeddings: %w", err)
		}
	}
	return nil
}

// MarkKeywordIndexed flags a chunk as having its keyword-index
// representation built.
func (r *ChunkRepo) MarkKeywordIndexed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE document_chunks SET keyword_indexed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.ChunkRepo.MarkKeywordIndexed: %w", err)
	}
	return nil
}

// CountByDocument returns the number of chunk rows for a document, used to
// verify the "chunk_count = count(chunks)" invariant.
func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository.ChunkRepo.CountByDocument: %w", err)
	}
	return n, nil
}

// DeleteByDocument removes every chunk row for a document (used by the
// orchestrator's rollback path on failure mid-ingestion).
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("repository.ChunkRepo.DeleteByDocument: %w", err)
	}
	return nil
}

// ListByDocument returns all chunks for a document ordered by chunk_index,
// used to verify dense strictly-increasing indices.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*model.DocumentChunk, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, text, metadata, created_at
		FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("repository.ChunkRepo.ListByDocument: %w", err)
	}
	defer rows.Close()

	var out []*model.DocumentChunk
	for rows.Next() {
		c := &model.DocumentChunk{}
		var meta []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &meta, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ChunkRepo.ListByDocument: scan: %w", err)
		}
		c.Metadata = json.RawMessage(meta)
		out = append(out, c)
	}
	return out, rows.Err()
}
