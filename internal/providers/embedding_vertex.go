package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

// VertexEmbedding calls the Vertex AI text embedding REST API. It embeds
// documents and queries with distinct task types (RETRIEVAL_DOCUMENT vs
// RETRIEVAL_QUERY) since the text-embedding-004 model family produces
// better retrieval pairs asymmetrically.
type VertexEmbedding struct {
	project   string
	model     string
	dimension int
	client    *http.Client
	limiter   *rate.Limiter
}

// NewVertexEmbedding builds a VertexEmbedding for the given project/model,
// declaring dimension (validated against the configured tuning value at
// startup). ratePerSecond throttles outbound embed calls client-side via
// golang.org/x/time/rate.
func NewVertexEmbedding(ctx context.Context, project, model string, dimension int, ratePerSecond float64) (*VertexEmbedding, error) {
	client, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("providers.NewVertexEmbedding: %w", err)
	}
	return &VertexEmbedding{
		project:   project,
		model:     model,
		dimension: dimension,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}, nil
}

func (e *VertexEmbedding) Dimension() int { return e.dimension }

type embeddingRequest struct {
	Instances []embeddingInstance `json:"instances"`
}

type embeddingInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type"`
}

type embeddingResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// EmbedTexts embeds a batch of document chunk texts using RETRIEVAL_DOCUMENT.
func (e *VertexEmbedding) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery embeds a single search query using RETRIEVAL_QUERY.
func (e *VertexEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{query}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *VertexEmbedding) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("providers.VertexEmbedding.embed: rate limiter: %w", err)
	}

	return withRetry(ctx, "VertexEmbedding.embed", func() ([][]float32, error) {
		instances := make([]embeddingInstance, len(texts))
		for i, t := range texts {
			instances[i] = embeddingInstance{Content: t, TaskType: taskType}
		}

		body, err := json.Marshal(embeddingRequest{Instances: instances})
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}

		url := fmt.Sprintf(
			"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:predict",
			e.project, e.model,
		)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("call: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("status %d (429/503): %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
		}

		var parsed embeddingResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		if len(parsed.Predictions) != len(texts) {
			return nil, fmt.Errorf("expected %d predictions, got %d", len(texts), len(parsed.Predictions))
		}

		out := make([][]float32, len(parsed.Predictions))
		for i, p := range parsed.Predictions {
			out[i] = p.Embeddings.Values
		}
		return out, nil
	})
}

var _ EmbeddingProvider = (*VertexEmbedding)(nil)
