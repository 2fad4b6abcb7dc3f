// Package cache holds the in-process read-through caches used for slow-moving
// Airtable tables (page content, plans, gyms).
package cache

import (
	"time"

	"github.com/FloatTech/ttl"
)

// TTL is a typed expiring map. A zero or negative ttl disables caching.
type TTL[K comparable, V any] struct {
	inner *ttl.Cache[K, *V]
}

func NewTTL[K comparable, V any](d time.Duration) *TTL[K, V] {
	if d <= 0 {
		return &TTL[K, V]{}
	}
	return &TTL[K, V]{inner: ttl.NewCache[K, *V](d)}
}

// Get returns the cached value and whether it was present.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil || c.inner == nil {
		return zero, false
	}
	// ttl.Cache returns the zero value (nil) on a miss.
	v := c.inner.Get(key)
	if v == nil {
		return zero, false
	}
	return *v, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Set(key, &value)
}

func (c *TTL[K, V]) Delete(key K) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Delete(key)
}

// Close stops the background expiry.
func (c *TTL[K, V]) Close() {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Destroy()
}
