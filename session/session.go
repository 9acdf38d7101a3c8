package session

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/askweb/models"
)

// ErrNotFound is returned by GetSession for unknown or expired ids.
var ErrNotFound = errors.New("session not found")

// Store creates and looks up per-visitor sessions. Implementations are safe
// for concurrent use.
type Store interface {
	// EnsureSession returns the live session for id and extends its lifetime
	// to ttl. An empty, unknown or expired id gets a brand new session with a
	// fresh id.
	EnsureSession(ctx context.Context, id string, ttl time.Duration) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}

// Session holds the query history of one visitor. History is append-only.
type Session interface {
	ID() string
	Append(ctx context.Context, entry models.HistoryEntry) error
	// History returns entries newest first.
	History(ctx context.Context) ([]models.HistoryEntry, error)
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)
