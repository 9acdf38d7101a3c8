package web_search

import (
	"context"

	"github.com/mohammad-safakhou/askweb/internal/helpers"
	"github.com/mohammad-safakhou/askweb/models"
)

// WithCleanup drops results that point at a page already listed. Titles and
// content are passed through untouched and the remaining results keep
// provider order.
func WithCleanup(s WebSearcher) WebSearcher {
	return &cleanup{next: s}
}

type cleanup struct {
	next WebSearcher
}

func (c *cleanup) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	results, err := c.next.Search(ctx, q, n)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		key, ok := helpers.DedupeKey(r.URL)
		if !ok {
			key = r.URL
		}
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out, nil
}
