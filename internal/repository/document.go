package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sophia-systems/csbot/internal/cerrors"
	"github.com/sophia-systems/csbot/internal/model"
)

// DocumentRepo persists Document rows and performs the status transitions
// driven exclusively by the ingestion orchestrator.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepo creates a DocumentRepo.
func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func marshalMeta(meta json.RawMessage) (json.RawMessage, error) {
	if len(meta) == 0 {
		return json.RawMessage("{}"), nil
	}
	return meta, nil
}

// Create inserts a new Document row with status=pending.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	meta, err := marshalMeta(doc.Metadata)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.Create: marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (id, title, source_type, source_uri, status, chunk_count, error_message, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Title, string(doc.SourceType), doc.SourceURI, string(doc.Status),
		doc.ChunkCount, doc.ErrorMessage, []byte(meta), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a Document by id, returning cerrors.DocumentNotFoundError
// when absent.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	doc := &model.Document{}
	var status, sourceType string
	var meta []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, title, source_type, source_uri, status, chunk_count, error_message, metadata, created_at, updated_at
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Title, &sourceType, &doc.SourceURI, &status, &doc.ChunkCount,
		&doc.ErrorMessage, &meta, &doc.CreatedAt, &doc.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, &cerrors.DocumentNotFoundError{DocumentID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("repository.DocumentRepo.GetByID: %w", err)
	}

	doc.Status = model.IndexStatus(status)
	doc.SourceType = model.SourceType(sourceType)
	doc.Metadata = json.RawMessage(meta)
	return doc, nil
}

// SetProcessing transitions pending -> processing, committed immediately so
// concurrent observers see ingestion begin.
func (r *DocumentRepo) SetProcessing(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.StatusProcessing), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.SetProcessing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &cerrors.DocumentNotFoundError{DocumentID: id}
	}
	return nil
}

// SetReady transitions processing -> ready with the final chunk count.
func (r *DocumentRepo) SetReady(ctx context.Context, id string, chunkCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $1, chunk_count = $2, error_message = NULL, updated_at = $3
		WHERE id = $4`,
		string(model.StatusReady), chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.SetReady: %w", err)
	}
	return nil
}

// SetError transitions any status -> error with the given message.
func (r *DocumentRepo) SetError(ctx context.Context, id, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(model.StatusError), message, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.SetError: %w", err)
	}
	return nil
}

// Delete removes a Document row. Chunk deletion cascades via the foreign
// key.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.DocumentRepo.Delete: %w", err)
	}
	return nil
}
