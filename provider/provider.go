package provider

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	anthropic_provider "github.com/mohammad-safakhou/askweb/provider/anthropic"
	openai_provider "github.com/mohammad-safakhou/askweb/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Gemini is reached through its OpenAI-compatible endpoint.
const (
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	GeminiModel   = "gemini-2.5-flash"
)

var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Provider sends one prompt and returns the model's full text reply.
// No conversation history, no system role, no streaming.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures a provider client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("LLM API key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	switch client {
	case Gemini:
		if opts.BaseURL == "" {
			opts.BaseURL = GeminiBaseURL
		}
		if opts.Model == "" {
			opts.Model = GeminiModel
		}
		return openai_provider.NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL, opts.Temperature, opts.MaxTokens, opts.Timeout), nil
	case OpenAI:
		return openai_provider.NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL, opts.Temperature, opts.MaxTokens, opts.Timeout), nil
	case Anthropic:
		return anthropic_provider.NewAnthropicClient(opts.APIKey, opts.Model, opts.BaseURL, opts.Temperature, opts.MaxTokens, opts.Timeout), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

type logged struct {
	next   Provider
	logger *log.Logger
}

// WithLogging logs every prompt, reply and latency.
func WithLogging(p Provider, logger *log.Logger) Provider {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &logged{next: p, logger: logger}
}

func (l *logged) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	l.logger.Printf("prompt (%d chars):\n%s", len(prompt), prompt)
	out, err := l.next.Generate(ctx, prompt)
	if err != nil {
		l.logger.Printf("error after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return "", err
	}
	l.logger.Printf("reply after %s (%d chars):\n%s", time.Since(start).Round(time.Millisecond), len(out), out)
	return out, nil
}
