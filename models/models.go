package models

import (
	"errors"
	"time"
)

// ErrEmptyQuery is returned when a query is blank after trimming.
var ErrEmptyQuery = errors.New("query is empty")

// SearchResult is one record returned by a web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Critique is the critic's judgement of a formatted answer.
type Critique struct {
	Raw      string `json:"raw"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Answer is the outcome of one pipeline run. Approved is false when the
// critic rejected every attempt and Text holds the last one.
type Answer struct {
	Query    string         `json:"query"`
	Text     string         `json:"text"`
	Approved bool           `json:"approved"`
	Attempts int            `json:"attempts"`
	Critique Critique       `json:"critique"`
	Sources  []SearchResult `json:"sources"`
	Duration time.Duration  `json:"duration"`
}

// HistoryEntry is one answered query kept in a session.
type HistoryEntry struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// NewHistoryEntry builds the history record for an answer.
func NewHistoryEntry(a Answer) HistoryEntry {
	return HistoryEntry{Query: a.Query, Answer: a.Text, Approved: a.Approved, CreatedAt: time.Now().UTC()}
}
