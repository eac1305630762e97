package dedupe

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache remembers inbound message ids so that platform redeliveries are answered only once.
type Cache struct {
	cache *cache.Cache
}

// New creates a new message id cache instance.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		cache: cache.New(ttl, cleanupInterval),
	}
}

// FirstSeen records the message id and reports whether it had not been seen within the TTL.
// Empty ids are never recorded and always count as first seen.
func (c *Cache) FirstSeen(messageID string) bool {
	if messageID == "" {
		return true
	}
	// Add fails when the key already exists, which makes check-and-set atomic.
	return c.cache.Add(messageID, struct{}{}, cache.DefaultExpiration) == nil
}
