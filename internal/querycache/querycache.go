// Package querycache is a small read-through cache for backend list
// queries, keyed by resource kind and scope (usually a project ID). It
// keeps repeat CLI invocations and quality-report fans from hammering the
// same endpoints.
package querycache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultTTL      = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

// Cache wraps an expiring in-memory store.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache with the given TTL. A non-positive ttl falls back to
// the default of 5 minutes.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{store: gocache.New(ttl, cleanupInterval)}
}

func key(resource, scope string) string {
	return fmt.Sprintf("%s|%s", resource, scope)
}

// Get returns the cached value for resource within scope.
func (c *Cache) Get(resource, scope string) (any, bool) {
	return c.store.Get(key(resource, scope))
}

// Set stores a value with the cache's default TTL.
func (c *Cache) Set(resource, scope string, value any) {
	c.store.Set(key(resource, scope), value, gocache.DefaultExpiration)
}

// Invalidate drops one resource entry within scope.
func (c *Cache) Invalidate(resource, scope string) {
	c.store.Delete(key(resource, scope))
}

// InvalidateScope drops every resource cached under scope. Used after
// imports and other bulk mutations.
func (c *Cache) InvalidateScope(scope string) {
	suffix := "|" + scope
	for k := range c.store.Items() {
		if len(k) >= len(suffix) && k[len(k)-len(suffix):] == suffix {
			c.store.Delete(k)
		}
	}
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.store.Flush()
}

// ItemCount returns the number of live entries, expired ones included
// until the next cleanup pass.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
