// Package providers defines the capability-set interfaces for every external
// collaborator the engine depends on (LLM, embeddings, vector store, keyword
// search, reranker) plus their concrete variants. Each contract has a closed
// set of implementations bound once at startup; there is no runtime dispatch across
// heterogeneous variants beyond that binding.
package providers

import "context"

// LLMMessage is one turn in a conversation sent to an LLM provider.
type LLMMessage struct {
	Role    string
	Content string
}

// LLMUsage reports token accounting for a completion.
type LLMUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the result of a non-streaming completion.
type LLMResponse struct {
	Content string
	Usage   LLMUsage
	Model   string
}

// LLMProvider generates chat completions, either whole or as a token stream.
type LLMProvider interface {
	Complete(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (LLMResponse, error)
	// Stream returns a channel of content tokens and a channel that carries
	// at most one error. Both channels close when generation ends.
	Stream(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (<-chan string, <-chan error)
}

// EmbeddingProvider turns text into fixed-dimension vectors.
type EmbeddingProvider interface {
	Dimension() int
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorSearchResult is one hit from a VectorStoreProvider or
// KeywordSearchProvider search.
type VectorSearchResult struct {
	ChunkID  string
	Score    float64
	Text     string
	Metadata map[string]any
}

// VectorStoreProvider persists chunk embeddings and serves ANN search.
type VectorStoreProvider interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]VectorSearchResult, error)
	Delete(ctx context.Context, ids []string) error
}

// KeywordSearchProvider persists a keyword (full-text) index and serves it.
type KeywordSearchProvider interface {
	Index(ctx context.Context, chunkID, text string, metadata map[string]any) error
	Search(ctx context.Context, query string, topK int, filter map[string]any) ([]VectorSearchResult, error)
}

// RerankResult is one scored, reordered candidate from a RerankerProvider.
type RerankResult struct {
	Index int
	Score float64
	Text  string
}

// RerankerProvider re-scores a candidate set against a query using a
// cross-encoder and returns the top topK, most relevant first.
type RerankerProvider interface {
	Rerank(ctx context.Context, query string, docs []string, topK int) ([]RerankResult, error)
}
