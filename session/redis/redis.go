package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "askweb:session:"

// Store keeps each session as a marker key plus a list of JSON history
// entries. Both keys share the session TTL, which is refreshed on every
// EnsureSession and Append.
type Store struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func markerKey(id string) string  { return keyPrefix + id }
func historyKey(id string) string { return keyPrefix + id + ":history" }

func (s *Store) EnsureSession(ctx context.Context, id string, ttl time.Duration) (session.Session, error) {
	if id != "" {
		ok, err := s.client.Expire(ctx, markerKey(id), ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis session: refresh %s: %w", id, err)
		}
		if ok {
			if err := s.client.Expire(ctx, historyKey(id), ttl).Err(); err != nil {
				return nil, fmt.Errorf("redis session: refresh %s history: %w", id, err)
			}
			return &Session{id: id, ttl: ttl, client: s.client}, nil
		}
	}

	id = uuid.NewString()
	if err := s.client.Set(ctx, markerKey(id), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis session: create: %w", err)
	}
	return &Session{id: id, ttl: ttl, client: s.client}, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	ttl, err := s.client.TTL(ctx, markerKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis session: lookup %s: %w", id, err)
	}
	// TTL reports -2 for a missing key and -1 for a key without expiry.
	if ttl == -2 {
		return nil, session.ErrNotFound
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Session{id: id, ttl: ttl, client: s.client}, nil
}

// Session is a handle on one Redis-backed history.
type Session struct {
	id     string
	ttl    time.Duration
	client *redis.Client
}

func (s *Session) ID() string { return s.id }

func (s *Session) Append(ctx context.Context, entry models.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis session: encode entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, historyKey(s.id), payload)
		if s.ttl > 0 {
			pipe.Expire(ctx, historyKey(s.id), s.ttl)
			pipe.Expire(ctx, markerKey(s.id), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session: append: %w", err)
	}
	return nil
}

func (s *Session) History(ctx context.Context) ([]models.HistoryEntry, error) {
	raw, err := s.client.LRange(ctx, historyKey(s.id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis session: history: %w", err)
	}
	out := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("redis session: decode entry: %w", err)
		}
		out = append(out, entry)
	}
	slices.Reverse(out)
	return out, nil
}
