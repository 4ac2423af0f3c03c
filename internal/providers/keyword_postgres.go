package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKeywordSearch implements KeywordSearchProvider over Postgres
// tsvector/ts_rank_cd full-text search, returning a plain chunk-id/score/
// text/metadata result shape. The index representation itself
// (`to_tsvector('english', text)`) is maintained by
// a generated column in the document_chunks table, so Index here only
// flags keyword_indexed=true once the generated column has a value.
type PostgresKeywordSearch struct {
	pool *pgxpool.Pool
}

// NewPostgresKeywordSearch creates a PostgresKeywordSearch.
func NewPostgresKeywordSearch(pool *pgxpool.Pool) *PostgresKeywordSearch {
	return &PostgresKeywordSearch{pool: pool}
}

// Index marks a chunk's keyword-index representation as built. The
// tsvector itself is a generated column (`text_tsv`) computed from `text`
// by Postgres on write, so this call only flips the readiness flag spec
// §4.2 step 6 requires before a Document can reach `ready`.
func (k *PostgresKeywordSearch) Index(ctx context.Context, chunkID, text string, metadata map[string]any) error {
	_, err := k.pool.Exec(ctx, `UPDATE document_chunks SET keyword_indexed = true WHERE id = $1`, chunkID)
	if err != nil {
		return fmt.Errorf("providers.PostgresKeywordSearch.Index: %w", err)
	}
	return nil
}

// Search runs a plainto_tsquery match ranked by ts_rank_cd.
func (k *PostgresKeywordSearch) Search(ctx context.Context, query string, topK int, filter map[string]any) ([]VectorSearchResult, error) {
	rows, err := k.pool.Query(ctx, `
		SELECT c.id, ts_rank_cd(c.text_tsv, plainto_tsquery('english', $1)) AS rank, c.text, c.metadata
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.keyword_indexed AND d.status = 'ready'
		  AND c.text_tsv @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2`, query, topK)
	if err != nil {
		return nil, fmt.Errorf("providers.PostgresKeywordSearch.Search: %w", err)
	}
	defer rows.Close()

	var out []VectorSearchResult
	for rows.Next() {
		var r VectorSearchResult
		var meta []byte
		if err := rows.Scan(&r.ChunkID, &r.Score, &r.Text, &meta); err != nil {
			return nil, fmt.Errorf("providers.PostgresKeywordSearch.Search: scan: %w", err)
		}
		_ = json.Unmarshal(meta, &r.Metadata)
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ KeywordSearchProvider = (*PostgresKeywordSearch)(nil)
