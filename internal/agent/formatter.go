package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/provider"
)

const formatInstruction = "Format the following search results in a professional, clear tone with summarized key points:\n\n"

// BuildFormatPrompt renders results in order as Title/URL/Content blocks
// separated by blank lines, after the formatting instruction.
func BuildFormatPrompt(results []models.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", r.Title, r.URL, r.Content))
	}
	return formatInstruction + strings.Join(blocks, "\n\n")
}

// Formatter asks the LLM to turn ranked results into an answer.
type Formatter struct {
	LLM provider.Provider
}

// Format returns the model's reply verbatim. An empty result list still
// produces a prompt and an LLM call.
func (f *Formatter) Format(ctx context.Context, results []models.SearchResult) (string, error) {
	return f.LLM.Generate(ctx, BuildFormatPrompt(results))
}
