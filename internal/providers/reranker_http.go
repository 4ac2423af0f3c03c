package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
)

// HTTPReranker scores (query, passage) pairs against a cross-encoder
// reached over HTTP/JSON, reusing the shared withRetry helper for
// transient failures.
type HTTPReranker struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPReranker builds an HTTPReranker.
func NewHTTPReranker(endpoint, apiKey string) *HTTPReranker {
	return &HTTPReranker{endpoint: endpoint, apiKey: apiKey, httpClient: &http.Client{}}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      int      `json:"top_k"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rerank scores query against docs and returns the top topK, scores
// mapped into (0, 1) by a logistic transform of the raw cross-encoder
// logit so downstream confidence thresholds are well-defined.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, docs []string, topK int) ([]RerankResult, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	return withRetry(ctx, "HTTPReranker.Rerank", func() ([]RerankResult, error) {
		body, err := json.Marshal(rerankRequest{Query: query, Documents: docs, TopK: topK})
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}

		resp, err := r.httpClient.Do(req)
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

		var parsed rerankResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		out := make([]RerankResult, 0, len(parsed.Results))
		for _, res := range parsed.Results {
			if res.Index < 0 || res.Index >= len(docs) {
				continue
			}
			out = append(out, RerankResult{
				Index: res.Index,
				Score: sigmoid(res.Score),
				Text:  docs[res.Index],
			})
		}

		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		if len(out) > topK {
			out = out[:topK]
		}
		return out, nil
	})
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

var _ RerankerProvider = (*HTTPReranker)(nil)
