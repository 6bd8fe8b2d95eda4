package ai

import (
	"fmt"
	"testing"
	"time"
)

func TestReplyCacheReadAfterWrite(t *testing.T) {
	cache := NewReplyCache(DefaultCacheTTL, DefaultCacheCapacity)
	cache.Set("k", "hello")
	got, ok := cache.Get("k")
	if !ok || got != "hello" {
		t.Fatalf("expected read-after-write hit, got %q ok=%v", got, ok)
	}
}

func TestReplyCacheLazyExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := NewReplyCache(5*time.Minute, 10)
	cache.clock = func() time.Time { return now }

	cache.Set("k", "v")
	now = now.Add(4 * time.Minute)
	if _, ok := cache.Get("k"); !ok {
		t.Fatalf("expected entry to be live before TTL")
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected entry to expire at TTL boundary")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be removed on lookup, len=%d", cache.Len())
	}
	// Lazy eviction is idempotent.
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected repeated lookup of expired key to still miss")
	}
}

func TestReplyCacheOverwriteSameKey(t *testing.T) {
	cache := NewReplyCache(time.Minute, 10)
	cache.Set("k", "first")
	cache.Set("k", "second")
	got, _ := cache.Get("k")
	if got != "second" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected overwrite not to grow the cache, len=%d", cache.Len())
	}
}

func TestReplyCacheCapacityEvictsOldest(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := NewReplyCache(time.Hour, 3)
	cache.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("k%d", i), "v")
		now = now.Add(time.Second)
	}
	cache.Set("k3", "v")

	if cache.Len() != 3 {
		t.Fatalf("expected capacity bound to hold, len=%d", cache.Len())
	}
	if _, ok := cache.Get("k0"); ok {
		t.Fatalf("expected oldest entry to have been evicted")
	}
	if _, ok := cache.Get("k3"); !ok {
		t.Fatalf("expected newest entry to survive eviction")
	}
}

func TestChatCacheKeyNormalization(t *testing.T) {
	history := []Message{
		{Role: "user", Content: "One"},
		{Role: "assistant", Content: "Two"},
		{Role: "user", Content: "Three"},
		{Role: "assistant", Content: "Four"},
	}
	key := chatCacheKey("What Now?", history)
	if key != "what now?|assistant:two|user:three|assistant:four" {
		t.Fatalf("unexpected fingerprint: %q", key)
	}

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	if got := chatCacheKey(string(long), nil); len(got) != maxCacheKeyLen {
		t.Fatalf("expected fingerprint truncated to %d chars, got %d", maxCacheKeyLen, len(got))
	}
}
