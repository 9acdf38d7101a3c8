package agent

import (
	"cmp"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/askweb/models"
)

// Reranker orders search results before they are shown to the LLM and keeps
// at most topK of them. Implementations must not modify results.
type Reranker interface {
	Rerank(query string, results []models.SearchResult, topK int) []models.SearchResult
}

// LengthReranker orders results by content length, longest first. The query
// is not consulted. Equal lengths keep their input order.
type LengthReranker struct{}

func (LengthReranker) Rerank(query string, results []models.SearchResult, topK int) []models.SearchResult {
	return Rerank(query, results, topK)
}

// Rerank is the LengthReranker ordering as a plain function.
func Rerank(query string, results []models.SearchResult, topK int) []models.SearchResult {
	out := slices.Clone(results)
	slices.SortStableFunc(out, func(a, b models.SearchResult) int {
		return cmp.Compare(utf8.RuneCountInString(b.Content), utf8.RuneCountInString(a.Content))
	})
	return truncate(out, topK)
}

func truncate(results []models.SearchResult, topK int) []models.SearchResult {
	if topK < 0 {
		topK = 0
	}
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

// BM25Reranker scores results against the query with an in-memory bleve
// index. Matched results come first by score; unmatched ones follow in
// length order. Any index error falls back to LengthReranker.
type BM25Reranker struct{}

type rerankDoc struct {
	Title   string
	Content string
}

func (BM25Reranker) Rerank(query string, results []models.SearchResult, topK int) []models.SearchResult {
	if len(results) == 0 {
		return truncate(nil, topK)
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return Rerank(query, results, topK)
	}
	defer index.Close()

	for i, r := range results {
		if err := index.Index(strconv.Itoa(i), rerankDoc{Title: r.Title, Content: r.Content}); err != nil {
			return Rerank(query, results, topK)
		}
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), len(results), 0, false)
	res, err := index.Search(req)
	if err != nil {
		return Rerank(query, results, topK)
	}

	out := make([]models.SearchResult, 0, len(results))
	seen := make(map[int]bool, len(results))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, results[i])
	}
	var rest []models.SearchResult
	for i, r := range results {
		if !seen[i] {
			rest = append(rest, r)
		}
	}
	out = append(out, Rerank(query, rest, len(rest))...)
	return truncate(out, topK)
}

// NewReranker returns the reranker for a strategy name, defaulting to length.
func NewReranker(strategy string) Reranker {
	if strategy == "bm25" {
		return BM25Reranker{}
	}
	return LengthReranker{}
}
