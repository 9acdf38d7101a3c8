package web_search

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch"
)

type backfill struct {
	next    WebSearcher
	fetcher web_fetch.WebFetcher
	logger  *log.Logger
}

// WithContentBackfill wraps s so that results returned without content get
// the readable text of their page. Fetch failures are logged and leave the
// content empty.
func WithContentBackfill(s WebSearcher, f web_fetch.WebFetcher, logger *log.Logger) WebSearcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &backfill{next: s, fetcher: f, logger: logger}
}

func (b *backfill) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	results, err := b.next.Search(ctx, q, n)
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		if strings.TrimSpace(out[i].Content) != "" || out[i].URL == "" {
			continue
		}
		page, err := b.fetcher.Exec(ctx, out[i].URL)
		if err != nil {
			b.logger.Printf("backfill %s: %v", out[i].URL, err)
			continue
		}
		out[i].Content = page.Text
		if out[i].Title == "" {
			out[i].Title = page.Title
		}
	}
	return out, nil
}
