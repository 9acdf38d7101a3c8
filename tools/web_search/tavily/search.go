package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/askweb/models"
)

const defaultBaseURL = "https://api.tavily.com"

type Search struct {
	ApiKey  string
	BaseURL string
	Depth   string // basic or advanced
	Client  *http.Client
}

func (s *Search) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	// https://docs.tavily.com/documentation/api-reference/endpoint/search
	if strings.TrimSpace(s.ApiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if n <= 0 {
		n = 3
	}
	depth := s.Depth
	if depth == "" {
		depth = "basic"
	}
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(map[string]any{
		"query":        q,
		"max_results":  n,
		"search_depth": depth,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.ApiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	out := make([]models.SearchResult, 0, min(n, len(raw.Results)))
	for _, r := range raw.Results {
		if len(out) >= n {
			break
		}
		out = append(out, models.SearchResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}
