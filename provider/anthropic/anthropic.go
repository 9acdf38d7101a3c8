package anthropic_provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2048
)

// client implements provider.Provider on the Messages API
type client struct {
	api         *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(apiKey, model, baseURL string, temperature float64, maxTokens int, timeout time.Duration) *client {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(&http.Client{Timeout: timeout})}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &client{
		api:         anthropic.NewClient(apiKey, opts...),
		model:       model,
		temperature: float32(temperature),
		maxTokens:   maxTokens,
	}
}

// Generate sends the prompt as a single user message and returns the first text block.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	temp := c.temperature
	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	text := resp.GetFirstContentText()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}
