package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM implements LLMProvider against the Claude Messages API,
// the primary generator variant for this engine.
type AnthropicLLM struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicLLM builds an AnthropicLLM for the given model name.
func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	return &AnthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

func toAnthropicMessages(messages []LLMMessage) (system string, turns []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, turns
}

func (a *AnthropicLLM) Complete(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (LLMResponse, error) {
	return withRetry(ctx, "AnthropicLLM.Complete", func() (LLMResponse, error) {
		system, turns := toAnthropicMessages(messages)
		params := anthropic.MessageNewParams{
			Model:       a.model,
			MaxTokens:   int64(maxTokens),
			Temperature: anthropic.Float(temperature),
			Messages:    turns,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return LLMResponse{}, fmt.Errorf("providers.AnthropicLLM.Complete: %w", err)
		}

		var content string
		for _, block := range msg.Content {
			if text := block.AsAny(); text != nil {
				if t, ok := text.(anthropic.TextBlock); ok {
					content += t.Text
				}
			}
		}

		return LLMResponse{
			Content: content,
			Model:   string(msg.Model),
			Usage: LLMUsage{
				PromptTokens:     int(msg.Usage.InputTokens),
				CompletionTokens: int(msg.Usage.OutputTokens),
				TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			},
		}, nil
	})
}

// Stream opens a Messages streaming request and forwards each text delta.
func (a *AnthropicLLM) Stream(ctx context.Context, messages []LLMMessage, temperature float64, maxTokens int) (<-chan string, <-chan error) {
	textCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(textCh)
		defer close(errCh)

		system, turns := toAnthropicMessages(messages)
		params := anthropic.MessageNewParams{
			Model:       a.model,
			MaxTokens:   int64(maxTokens),
			Temperature: anthropic.Float(temperature),
			Messages:    turns,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			select {
			case textCh <- text.Text:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("providers.AnthropicLLM.Stream: %w", err)
		}
	}()

	return textCh, errCh
}

var _ LLMProvider = (*AnthropicLLM)(nil)
