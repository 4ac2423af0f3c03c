package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sophia-systems/csbot/internal/providers"
)

// Retriever runs the two retrieval modalities in parallel and fuses them.
// Grounded in the teacher's internal/service/retriever.go for the
// errgroup-based parallel fan-out shape; the teacher's own proprietary
// 0.70*similarity + 0.15*recency + 0.15*parentDoc weighting and per-
// document dedup cap are not part of this spec and are dropped — RRF
// output here feeds directly into reranking.
type Retriever struct {
	embeddings providers.EmbeddingProvider
	vectors    providers.VectorStoreProvider
	keyword    providers.KeywordSearchProvider
}

// NewRetriever creates a Retriever.
func NewRetriever(embeddings providers.EmbeddingProvider, vectors providers.VectorStoreProvider, keyword providers.KeywordSearchProvider) *Retriever {
	return &Retriever{embeddings: embeddings, vectors: vectors, keyword: keyword}
}

// Semantic embeds the query and runs ANN cosine search.
func (r *Retriever) Semantic(ctx context.Context, query string, topK int) ([]Record, error) {
	vec, err := r.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval.Retriever.Semantic: embed: %w", err)
	}
	hits, err := r.vectors.Search(ctx, vec, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval.Retriever.Semantic: search: %w", err)
	}
	return toRecords(hits), nil
}

// Keyword runs full-text search ranked by the backend's own score (spec
// §4.3).
func (r *Retriever) Keyword(ctx context.Context, query string, topK int) ([]Record, error) {
	hits, err := r.keyword.Search(ctx, query, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval.Retriever.Keyword: search: %w", err)
	}
	return toRecords(hits), nil
}

// Retrieve runs Semantic and Keyword concurrently, joining before returning
// both lists for the caller to fuse.
func (r *Retriever) Retrieve(ctx context.Context, query string, semanticTopK, keywordTopK int) (semantic, keyword []Record, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := r.Semantic(gctx, query, semanticTopK)
		if err != nil {
			return err
		}
		semantic = records
		return nil
	})

	g.Go(func() error {
		records, err := r.Keyword(gctx, query, keywordTopK)
		if err != nil {
			return err
		}
		keyword = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("retrieval.Retriever.Retrieve: %w", err)
	}
	return semantic, keyword, nil
}

func toRecords(hits []providers.VectorSearchResult) []Record {
	out := make([]Record, len(hits))
	for i, h := range hits {
		out[i] = Record{ChunkID: h.ChunkID, Text: h.Text, Score: h.Score, Metadata: h.Metadata}
	}
	return out
}
