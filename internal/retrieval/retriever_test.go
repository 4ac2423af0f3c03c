package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/sophia-systems/csbot/internal/providers"
)

type fakeEmbedding struct {
	dim     int
	queryFn func(string) ([]float32, error)
}

func (f *fakeEmbedding) Dimension() int { return f.dim }
func (f *fakeEmbedding) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}
func (f *fakeEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.queryFn(query)
}

type fakeVectorStore struct {
	results []providers.VectorSearchResult
	err     error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	return nil
}
func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]providers.VectorSearchResult, error) {
	return f.results, f.err
}
func (f *fakeVectorStore) Delete(ctx context.Context, ids []string) error { return nil }

type fakeKeywordSearch struct {
	results []providers.VectorSearchResult
	err     error
}

func (f *fakeKeywordSearch) Index(ctx context.Context, chunkID, text string, metadata map[string]any) error {
	return nil
}
func (f *fakeKeywordSearch) Search(ctx context.Context, query string, topK int, filter map[string]any) ([]providers.VectorSearchResult, error) {
	return f.results, f.err
}

func TestRetriever_RetrieveRunsBothAndJoins(t *testing.T) {
	embed := &fakeEmbedding{queryFn: func(string) ([]float32, error) { return []float32{0.1}, nil }}
	vecStore := &fakeVectorStore{results: []providers.VectorSearchResult{{ChunkID: "a", Score: 0.9, Text: "dense hit"}}}
	kwStore := &fakeKeywordSearch{results: []providers.VectorSearchResult{{ChunkID: "b", Score: 1.0, Text: "sparse hit"}}}

	r := NewRetriever(embed, vecStore, kwStore)
	semantic, keyword, err := r.Retrieve(context.Background(), "how do I reset my password", 20, 20)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(semantic) != 1 || semantic[0].ChunkID != "a" {
		t.Errorf("semantic = %+v, want one record with ChunkID a", semantic)
	}
	if len(keyword) != 1 || keyword[0].ChunkID != "b" {
		t.Errorf("keyword = %+v, want one record with ChunkID b", keyword)
	}
}

func TestRetriever_RetrievePropagatesSemanticError(t *testing.T) {
	embed := &fakeEmbedding{queryFn: func(string) ([]float32, error) { return nil, errors.New("embedding provider down") }}
	vecStore := &fakeVectorStore{}
	kwStore := &fakeKeywordSearch{}

	r := NewRetriever(embed, vecStore, kwStore)
	_, _, err := r.Retrieve(context.Background(), "query", 20, 20)
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestRetriever_RetrievePropagatesKeywordError(t *testing.T) {
	embed := &fakeEmbedding{queryFn: func(string) ([]float32, error) { return []float32{0.1}, nil }}
	vecStore := &fakeVectorStore{}
	kwStore := &fakeKeywordSearch{err: errors.New("keyword index unavailable")}

	r := NewRetriever(embed, vecStore, kwStore)
	_, _, err := r.Retrieve(context.Background(), "query", 20, 20)
	if err == nil {
		t.Fatal("expected error when keyword search fails")
	}
}
