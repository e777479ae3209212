package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient calls the Anthropic messages API.
type anthropicClient struct {
	client *anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicClient{
		client: &client,
		model:  model,
	}, nil
}

// Request sends a single-turn prompt and returns the model's reply.
func (c *anthropicClient) Request(ctx context.Context, prompt string) (*Response, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("Anthropic returned no text content")
	}

	return &Response{
		Text:       sb.String(),
		Confidence: 0.8,
	}, nil
}
