// Package cache provides the process-scoped tier-1 merchant suggestion
// cache. It is purely a performance layer: entries expire after a TTL and
// the cache is never authoritative.
package cache

import (
	"sync"
	"time"
)

// Key identifies one cached merchant suggestion.
type Key struct {
	UserID       uint
	Merchant     string
	MerchantCode string
}

// Suggestion is the cached categorization result.
type Suggestion struct {
	CategoryID   uint
	CategoryName string
	Confidence   float64
}

type entry struct {
	value     Suggestion
	expiresAt time.Time
}

// MerchantCache is a TTL map guarded by a mutex. State is owned by the
// instance so tests can reset it deterministically.
type MerchantCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[Key]entry
	now     func() time.Time
}

// New creates a cache with the given entry TTL.
func New(ttl time.Duration) *MerchantCache {
	return &MerchantCache{
		ttl:     ttl,
		entries: make(map[Key]entry),
		now:     time.Now,
	}
}

// Get returns the cached suggestion for a key if present and unexpired.
func (c *MerchantCache) Get(key Key) (Suggestion, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Suggestion{}, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Suggestion{}, false
	}
	return e.value, true
}

// Set stores a suggestion under a key.
func (c *MerchantCache) Set(key Key, value Suggestion) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// InvalidateMerchant drops every entry for a user/merchant pair regardless
// of merchant code. Used after a manual correction so stale suggestions
// are never served again.
func (c *MerchantCache) InvalidateMerchant(userID uint, merchant string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.UserID == userID && k.Merchant == merchant {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *MerchantCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[Key]entry)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *MerchantCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
