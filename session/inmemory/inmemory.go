package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/mohammad-safakhou/askweb/session/session_object"
)

// Store keeps sessions in a map for the life of the process. Expired
// sessions are dropped lazily when a new one is created.
type Store struct {
	sessions map[string]*session_object.Session
	mu       sync.RWMutex
}

func NewInMemorySessionStore() *Store {
	return &Store{sessions: make(map[string]*session_object.Session)}
}

func (store *Store) EnsureSession(_ context.Context, id string, ttl time.Duration) (session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	now := time.Now()
	if id != "" {
		if sess, ok := store.sessions[id]; ok && !sess.Expired(now) {
			sess.Expire(ttl)
			return sess, nil
		}
	}

	store.prune(now)
	sess := session_object.NewSession(uuid.NewString(), ttl)
	store.sessions[sess.ID()] = sess
	return sess, nil
}

func (store *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (store *Store) prune(now time.Time) {
	for id, sess := range store.sessions {
		if sess.Expired(now) {
			delete(store.sessions, id)
		}
	}
}
