package redis_session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn dials Redis and checks the connection with PING.
func Conn(ctx context.Context, addr, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: timeout,
		ReadTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	log.Printf("[SESSION] redis -> %s db=%d", addr, db)

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}
