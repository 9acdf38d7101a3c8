package serper

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

const defaultBaseURL = "https://google.serper.dev"

type Search struct {
	ApiKey  string
	BaseURL string
	Client  *http.Client
}

func (s *Search) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	// https://serper.dev/ docs
	if strings.TrimSpace(s.ApiKey) == "" {
		return nil, errors.New("serper: API key is missing")
	}
	if n <= 0 {
		n = 3
	}
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(map[string]any{"q": q, "num": n})
	if err != nil {
		return nil, fmt.Errorf("serper: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	var out []models.SearchResult
	for i, it := range raw.Organic {
		if i >= n {
			break
		}
		out = append(out, models.SearchResult{Title: it.Title, URL: it.Link, Content: it.Snippet})
	}
	return out, nil
}
