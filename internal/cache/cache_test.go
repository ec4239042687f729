package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func newRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, 0)
}

func implementations(t *testing.T) map[string]ListingCache {
	return map[string]ListingCache{
		"memory": NewMemoryCache(),
		"redis":  newRedisCache(t),
	}
}

func TestCacheRoundTripAndInvalidate(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			org := uuid.New()

			gen, err := c.Generation(ctx, org, NamespaceRequisitions)
			require.NoError(t, err)
			require.NoError(t, c.Set(ctx, org, NamespaceRequisitions, gen, "all:1:20", page{Items: []string{"PR-000001"}, Total: 1}))

			var got page
			hit, err := c.Get(ctx, org, NamespaceRequisitions, gen, "all:1:20", &got)
			require.NoError(t, err)
			require.True(t, hit)
			assert.Equal(t, 1, got.Total)

			require.NoError(t, c.Invalidate(ctx, org, NamespaceRequisitions, NamespaceDashboard))
			next, err := c.Generation(ctx, org, NamespaceRequisitions)
			require.NoError(t, err)
			assert.Equal(t, gen+1, next)

			hit, err = c.Get(ctx, org, NamespaceRequisitions, next, "all:1:20", &got)
			require.NoError(t, err)
			assert.False(t, hit, "entry from the previous generation must not be served")
		})
	}
}

func TestCacheDiscardsLateResult(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			org := uuid.New()

			stale, err := c.Generation(ctx, org, NamespaceOrders)
			require.NoError(t, err)
			require.NoError(t, c.Invalidate(ctx, org, NamespaceOrders))

			// A listing computed before the invalidation arrives late.
			require.NoError(t, c.Set(ctx, org, NamespaceOrders, stale, "orders:1:20", page{Total: 99}))

			current, err := c.Generation(ctx, org, NamespaceOrders)
			require.NoError(t, err)
			var got page
			hit, err := c.Get(ctx, org, NamespaceOrders, current, "orders:1:20", &got)
			require.NoError(t, err)
			assert.False(t, hit)

			hit, err = c.Get(ctx, org, NamespaceOrders, stale, "orders:1:20", &got)
			require.NoError(t, err)
			assert.False(t, hit)
		})
	}
}

func TestCacheScopesAreIsolated(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			orgA, orgB := uuid.New(), uuid.New()

			require.NoError(t, c.Invalidate(ctx, orgA, NamespaceRequisitions))
			genB, err := c.Generation(ctx, orgB, NamespaceRequisitions)
			require.NoError(t, err)
			assert.Zero(t, genB)
		})
	}
}
