package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

const userAgent = "askweb/1.0 (+https://github.com/mohammad-safakhou/askweb)"

// maxBodyBytes caps how much HTML is read from a single page.
const maxBodyBytes = 4 << 20

// Fetch downloads a page over plain HTTP and extracts its readable text.
type Fetch struct {
	Client   *http.Client
	MaxChars int
}

func New(timeout time.Duration, maxChars int) *Fetch {
	return &Fetch{Client: &http.Client{Timeout: timeout}, MaxChars: maxChars}
}

func (f *Fetch) Exec(ctx context.Context, link string) (models.Result, error) {
	if strings.TrimSpace(link) == "" {
		return models.Result{}, errors.New("invalid url")
	}
	pageURL, err := url.Parse(link)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return models.Result{}, fmt.Errorf("invalid url %q", link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return models.Result{URL: link}, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Result{URL: link, Status: resp.StatusCode}, fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), pageURL)
	if err != nil {
		return models.Result{URL: link, Status: resp.StatusCode}, fmt.Errorf("extract %s: %w", link, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if f.MaxChars > 0 {
		if r := []rune(text); len(r) > f.MaxChars {
			text = string(r[:f.MaxChars])
		}
	}

	return models.Result{
		URL:    link,
		Title:  strings.TrimSpace(article.Title),
		Byline: strings.TrimSpace(article.Byline),
		Text:   text,
		Status: resp.StatusCode,
	}, nil
}
