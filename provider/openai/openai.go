package openai_provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// client implements provider.Provider on the chat completions API
type client struct {
	api         *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIClient creates a new OpenAI client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, model, baseURL string, temperature float64, maxTokens int, timeout time.Duration) *client {
	if model == "" {
		model = defaultModel
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	return &client{
		api:         openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate sends the prompt as a single user message.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
