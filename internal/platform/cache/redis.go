// Package cache connects the Redis client shared by the directory cache and
// the job queue.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPingTimeout bounds the startup connectivity check.
const DefaultPingTimeout = 5 * time.Second

// New creates a Redis client and verifies it answers PING. The client is
// closed again when the check fails.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", addr, err)
	}
	return client, nil
}
