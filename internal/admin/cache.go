package admin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix      = "admin:directory:"
	generationKeyPrefix = "admin:directory-gen:"
)

var errStaleGeneration = errors.New("admin cache: record changed during read")

// Cache is a read-through Redis cache for directory records. A nil Cache or
// a Cache without client is a no-op.
//
// Every invalidation bumps a per-email generation. A reader captures the
// generation before it queries PostgreSQL and Set only stores the record if
// the generation is unchanged, so a read that raced a write cannot put the
// old record back.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) disabled() bool {
	return c == nil || c.client == nil
}

// Get returns the cached record for emailKey.
func (c *Cache) Get(ctx context.Context, emailKey string) (Record, bool, error) {
	if c.disabled() {
		return Record{}, false, nil
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+emailKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Generation returns the invalidation counter for emailKey.
func (c *Cache) Generation(ctx context.Context, emailKey string) (int64, error) {
	if c.disabled() {
		return 0, nil
	}
	return generation(c.client.Get(ctx, generationKeyPrefix+emailKey))
}

func generation(cmd *redis.StringCmd) (int64, error) {
	n, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Set stores rec until the TTL expires, provided no invalidation happened
// since gen was read. A skipped write is not an error.
func (c *Cache) Set(ctx context.Context, rec Record, gen int64) error {
	if c.disabled() || c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	genKey := generationKeyPrefix + rec.EmailKey
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKeyPrefix+rec.EmailKey, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached record for emailKey and bumps its generation.
func (c *Cache) Invalidate(ctx context.Context, emailKey string) error {
	if c.disabled() {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKeyPrefix+emailKey)
		pipe.Del(ctx, cacheKeyPrefix+emailKey)
		return nil
	})
	return err
}
