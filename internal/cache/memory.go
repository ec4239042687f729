package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type scopeKey struct {
	org uuid.UUID
	ns  Namespace
}

type scopeEntry struct {
	gen    int64
	values map[string][]byte
}

// MemoryCache is the single-process ListingCache used when Redis is not configured.
// Values are stored as JSON so callers never share mutable state with the cache.
type MemoryCache struct {
	mu     sync.RWMutex
	scopes map[scopeKey]*scopeEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{scopes: make(map[scopeKey]*scopeEntry)}
}

func (c *MemoryCache) Generation(_ context.Context, org uuid.UUID, ns Namespace) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.scopes[scopeKey{org, ns}]; ok {
		return entry.gen, nil
	}
	return 0, nil
}

func (c *MemoryCache) Invalidate(_ context.Context, org uuid.UUID, namespaces ...Namespace) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range namespaces {
		key := scopeKey{org, ns}
		entry, ok := c.scopes[key]
		if !ok {
			entry = &scopeEntry{}
			c.scopes[key] = entry
		}
		entry.gen++
		entry.values = nil
	}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, org uuid.UUID, ns Namespace, gen int64, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.scopes[scopeKey{org, ns}]
	var raw []byte
	if ok && entry.gen == gen {
		raw, ok = entry.values[key]
	} else {
		ok = false
	}
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Set drops the value when gen has been superseded by an invalidation.
func (c *MemoryCache) Set(_ context.Context, org uuid.UUID, ns Namespace, gen int64, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", ns, key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sk := scopeKey{org, ns}
	entry, ok := c.scopes[sk]
	if !ok {
		entry = &scopeEntry{}
		c.scopes[sk] = entry
	}
	if entry.gen != gen {
		return nil
	}
	if entry.values == nil {
		entry.values = make(map[string][]byte)
	}
	entry.values[key] = raw
	return nil
}
