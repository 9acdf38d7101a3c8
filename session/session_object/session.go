package session_object

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mohammad-safakhou/askweb/models"
)

// Session is a process-local history list with an expiry time.
type Session struct {
	id        string
	expiresAt time.Time
	entries   []models.HistoryEntry
	mu        sync.RWMutex
}

func NewSession(id string, ttl time.Duration) *Session {
	s := &Session{id: id}
	s.Expire(ttl)
	return s
}

func (s *Session) ID() string { return s.id }

// Expire moves the expiry to ttl from now.
func (s *Session) Expire(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Now().Add(ttl)
}

func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !now.Before(s.expiresAt)
}

func (s *Session) Append(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Session) History(context.Context) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	out := slices.Clone(s.entries)
	s.mu.RUnlock()
	slices.Reverse(out)
	return out, nil
}
