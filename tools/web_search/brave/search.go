package brave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/askweb/internal/helpers"
	"github.com/mohammad-safakhou/askweb/models"
)

const defaultBaseURL = "https://api.search.brave.com"

type Search struct {
	ApiKey  string
	BaseURL string
	Client  *http.Client
}

func (s *Search) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	// https://api.search.brave.com/app/documentation/web-search
	if strings.TrimSpace(s.ApiKey) == "" {
		return nil, errors.New("brave: API key is missing")
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

	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(n))
	endpoint := strings.TrimRight(base, "/") + "/res/v1/web/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("brave: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("brave: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title         string   `json:"title"`
				URL           string   `json:"url"`
				Description   string   `json:"description"`
				ExtraSnippets []string `json:"extra_snippets"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	var out []models.SearchResult
	for i, r := range raw.Web.Results {
		if i >= n {
			break
		}
		// Brave wraps matched terms in <strong> and escapes entities.
		content := helpers.StripHighlights(r.Description)
		for _, snippet := range r.ExtraSnippets {
			content += "\n" + helpers.StripHighlights(snippet)
		}
		out = append(out, models.SearchResult{Title: helpers.StripHighlights(r.Title), URL: r.URL, Content: content})
	}
	return out, nil
}
