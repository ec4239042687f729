package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "procurement"
	// DefaultTTL bounds how long entries of a superseded generation linger.
	DefaultTTL = 10 * time.Minute
)

// RedisCache shares listing caches and generation counters across API instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func genKey(org uuid.UUID, ns Namespace) string {
	return fmt.Sprintf("%s:%s:%s:gen", keyPrefix, org, ns)
}

func valueKey(org uuid.UUID, ns Namespace, gen int64, key string) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", keyPrefix, org, ns, gen, key)
}

func (c *RedisCache) Generation(ctx context.Context, org uuid.UUID, ns Namespace) (int64, error) {
	raw, err := c.client.Get(ctx, genKey(org, ns)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s generation: %w", ns, err)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s generation %q: %w", ns, raw, err)
	}
	return gen, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, org uuid.UUID, namespaces ...Namespace) error {
	if len(namespaces) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, ns := range namespaces {
		pipe.Incr(ctx, genKey(org, ns))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bump generations: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, org uuid.UUID, ns Namespace, gen int64, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, valueKey(org, ns, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached %s/%s: %w", ns, key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Set skips the write when gen is already stale; a racing write lands under a dead key and expires.
func (c *RedisCache) Set(ctx context.Context, org uuid.UUID, ns Namespace, gen int64, key string, value interface{}) error {
	current, err := c.Generation(ctx, org, ns)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", ns, key, err)
	}
	if err := c.client.Set(ctx, valueKey(org, ns, gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached %s/%s: %w", ns, key, err)
	}
	return nil
}
