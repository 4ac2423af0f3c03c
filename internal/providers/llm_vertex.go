package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
)

// VertexLLM implements LLMProvider against Vertex AI's Gemini REST surface
// (global endpoint), authenticated with Application Default Credentials.
// Only the global endpoint is targeted, so there is no regional-endpoint
// code path to maintain.
type VertexLLM struct {
	httpClient *http.Client
	project    string
	model      string
}

// NewVertexLLM builds a VertexLLM using Application Default Credentials.
func NewVertexLLM(ctx context.Context, project, model string) (*VertexLLM, error) {
	httpClient, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("providers.NewVertexLLM: default credentials: %w", err)
	}
	return &VertexLLM{httpClient: httpClient, project: project, model: model}, nil
}

type vertexRequest struct {
	Contents          []vertexContent        `json:"contents"`
	SystemInstruction *vertexContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  *vertexGenerationConfig `json:"generationConfig,omitempty"`
}

type vertexContent struct {
	Role  string      `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text string `json:"text"`
}

type vertexGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type vertexResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func toVertexRequest(messages []LLMMessage, temperature float64, maxTokens int) vertexRequest {
	req := vertexRequest{GenerationConfig: &vertexGenerationConfig{
		Temperature:     &temperature,
		MaxOutputTokens: &maxTokens,
	}}
	for _, m := range messages {
		if m.Role == "system" {
			sys := vertexContent{Role: "user", Parts: []vertexPart{{Text: m.Content}}}
			req.SystemInstruction = &sys
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, vertexContent{Role: role, Parts: []vertexPart{{Text: m.Content}}})
	}
	return req
}

func (a *VertexLLM) Complete(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (LLMResponse, error) {
	return withRetry(ctx, "VertexLLM.Complete", func() (LLMResponse, error) {
		url := fmt.Sprintf(
			"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:generateContent",
			a.project, a.model,
		)

		body, err := json.Marshal(toVertexRequest(messages, temperature, maxTokens))
		if err != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: marshal: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: call: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: read body: %w", err)
		}
		if isRetryableStatus(resp.StatusCode) {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: status %d (429/503): %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode != http.StatusOK {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: status %d: %s", resp.StatusCode, respBody)
		}

		var genResp vertexResponse
		if err := json.Unmarshal(respBody, &genResp); err != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: decode: %w", err)
		}
		if genResp.Error != nil {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: API error %d: %s", genResp.Error.Code, genResp.Error.Message)
		}
		if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
			return LLMResponse{}, fmt.Errorf("providers.VertexLLM.Complete: empty response from model")
		}

		var parts []string
		for _, p := range genResp.Candidates[0].Content.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		out := LLMResponse{Content: strings.Join(parts, ""), Model: a.model}
		if genResp.UsageMetadata != nil {
			out.Usage = LLMUsage{
				PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
				CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      genResp.UsageMetadata.TotalTokenCount,
			}
		}
		return out, nil
	})
}

// Stream reads Server-Sent Events from Vertex AI's streamGenerateContent
// endpoint, emitting each text part as it arrives.
func (a *VertexLLM) Stream(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (<-chan string, <-chan error) {
	textCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(textCh)
		defer close(errCh)
		if err := a.streamREST(ctx, messages, temperature, maxTokens, textCh); err != nil {
			errCh <- err
		}
	}()

	return textCh, errCh
}

func (a *VertexLLM) streamREST(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int, textCh chan<- string) error {
	url := fmt.Sprintf(
		"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:streamGenerateContent?alt=sse",
		a.project, a.model,
	)

	body, err := json.Marshal(toVertexRequest(messages, temperature, maxTokens))
	if err != nil {
		return fmt.Errorf("providers.VertexLLM.Stream: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("providers.VertexLLM.Stream: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("providers.VertexLLM.Stream: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("providers.VertexLLM.Stream: status %d: %s", resp.StatusCode, respBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk vertexResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					select {
					case textCh <- part.Text:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	}
	return scanner.Err()
}

var _ LLMProvider = (*VertexLLM)(nil)
