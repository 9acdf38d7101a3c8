package web_fetch

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 10 * time.Second
	MaxCharsDefault = 20000
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType FetcherType = "http"
)

type Error struct{ msg string }

func (e *Error) Error() string { return "web_fetch: " + e.msg }

var ErrUnsupportedFetcher = &Error{"unsupported fetcher type"}

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType:
		return httpfetch.New(timeout, maxChars), nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
