package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/askweb/models"
)

type searcherStub struct {
	mu      sync.Mutex
	results []models.SearchResult
	err     error
	calls   int
	lastN   int
}

func (s *searcherStub) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastN = n
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.results, nil
}

// llmStub answers formatter prompts with formatted and critic prompts with
// the next entry of critiques (the last entry repeats).
type llmStub struct {
	mu            sync.Mutex
	formatted     string
	critiques     []string
	formatErr     error
	criticErr     error
	formatPrompts []string
	criticPrompts []string
	onCritique    func()
}

func (l *llmStub) Generate(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.HasPrefix(prompt, "Act as a critic.") {
		l.criticPrompts = append(l.criticPrompts, prompt)
		if l.onCritique != nil {
			l.onCritique()
		}
		if l.criticErr != nil {
			return "", l.criticErr
		}
		i := len(l.criticPrompts) - 1
		if i >= len(l.critiques) {
			i = len(l.critiques) - 1
		}
		return l.critiques[i], nil
	}
	l.formatPrompts = append(l.formatPrompts, prompt)
	if l.formatErr != nil {
		return "", l.formatErr
	}
	return l.formatted, nil
}

func resultWithLen(title string, n int) models.SearchResult {
	return models.SearchResult{Title: title, URL: "https://" + title + ".example", Content: strings.Repeat("x", n)}
}
