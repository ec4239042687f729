// Package cache keeps per-organization listing caches. Each namespace carries a
// generation counter; invalidation bumps it, and entries are keyed by the
// generation they were computed under, so a stale entry is never served.
package cache

import (
	"context"

	"github.com/google/uuid"
)

// Namespace partitions the cached listings of one organization
type Namespace string

const (
	NamespaceRequisitions Namespace = "requisitions"
	NamespaceOrders       Namespace = "orders"
	NamespaceDashboard    Namespace = "dashboard"
)

// ListingCache is implemented by RedisCache and MemoryCache
type ListingCache interface {
	Generation(ctx context.Context, org uuid.UUID, ns Namespace) (int64, error)
	Invalidate(ctx context.Context, org uuid.UUID, namespaces ...Namespace) error
	Get(ctx context.Context, org uuid.UUID, ns Namespace, gen int64, key string, dest interface{}) (bool, error)
	// Set stores value for gen; implementations may drop values whose gen is no longer current.
	Set(ctx context.Context, org uuid.UUID, ns Namespace, gen int64, key string, value interface{}) error
}
