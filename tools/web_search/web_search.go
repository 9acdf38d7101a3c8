package web_search

import (
	"context"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/tools/web_search/brave"
	"github.com/mohammad-safakhou/askweb/tools/web_search/serper"
	"github.com/mohammad-safakhou/askweb/tools/web_search/tavily"
)

// DefaultResults is the number of results requested when the caller passes n <= 0.
const DefaultResults = 3

// WebSearcher runs one query against a search provider. The provider caps the
// list at n and its order is kept.
type WebSearcher interface {
	Search(ctx context.Context, q string, n int) ([]models.SearchResult, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ msg string }

func (e *Error) Error() string { return "web_search: " + e.msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// Options configures a provider client.
type Options struct {
	APIKey  string
	BaseURL string // overrides the provider endpoint, used by tests
	Timeout time.Duration
	Depth   string // tavily only
}

func NewWebSearcher(provider Provider, opts Options) (WebSearcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}
	var s WebSearcher
	switch provider {
	case TavilyProvider:
		s = &tavily.Search{ApiKey: opts.APIKey, BaseURL: opts.BaseURL, Depth: opts.Depth, Client: client}
	case SerperProvider:
		s = &serper.Search{ApiKey: opts.APIKey, BaseURL: opts.BaseURL, Client: client}
	case BraveProvider:
		s = &brave.Search{ApiKey: opts.APIKey, BaseURL: opts.BaseURL, Client: client}
	default:
		return nil, ErrUnsupportedProvider
	}
	return WithCleanup(s), nil
}
