package ai

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCacheTTL is how long a chatbot reply stays servable.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultCacheCapacity bounds the number of live entries so sustained
	// unique-query traffic cannot grow the cache without limit.
	DefaultCacheCapacity = 1000
	// maxCacheKeyLen limits the normalized fingerprint length.
	maxCacheKeyLen = 200
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// ReplyCache is a TTL-bounded store for chatbot replies keyed by a normalized
// fingerprint of the request. Expired entries are removed lazily on lookup;
// entries are never mutated, only replaced under the same key.
type ReplyCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int
	clock    func() time.Time
}

func NewReplyCache(ttl time.Duration, capacity int) *ReplyCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ReplyCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the cached value for key if present and not expired. A stale
// entry found here is deleted as a side effect.
func (c *ReplyCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.clock().Before(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set inserts or overwrites the entry for key. When the cache is at capacity
// the entry closest to expiry is evicted first; with a fixed TTL that is the
// oldest entry.
func (c *ReplyCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.clock().Add(c.ttl),
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *ReplyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReplyCache) evictOldestLocked() {
	var oldestKey string
	var oldestExpiry time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// chatCacheKey derives the cache fingerprint from the user message and the
// last three conversation turns. Two requests with equal fingerprints are
// treated as identical.
func chatCacheKey(message string, context []Message) string {
	if len(context) > 3 {
		context = context[len(context)-3:]
	}
	parts := make([]string, 0, len(context))
	for _, m := range context {
		parts = append(parts, m.Role+":"+m.Content)
	}
	key := strings.ToLower(message + "|" + strings.Join(parts, "|"))
	if len(key) > maxCacheKeyLen {
		key = key[:maxCacheKeyLen]
	}
	return key
}
