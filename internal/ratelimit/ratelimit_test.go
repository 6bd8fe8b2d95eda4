package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterDrainsAndRefills(t *testing.T) {
	current := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter()
	limiter.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow("user-1", 3)
		if !ok {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	ok, retry := limiter.Allow("user-1", 3)
	if ok {
		t.Fatal("expected fourth request to be rejected")
	}
	if retry < 1 {
		t.Fatalf("expected positive retry hint, got %d", retry)
	}

	// A different key has its own bucket.
	if ok, _ := limiter.Allow("user-2", 3); !ok {
		t.Fatal("expected separate key to be allowed")
	}

	current = current.Add(time.Minute)
	if ok, _ := limiter.Allow("user-1", 3); !ok {
		t.Fatal("expected request after refill window to be allowed")
	}
}

func TestLimiterRejectsEmptyKeyAndZeroBudget(t *testing.T) {
	limiter := NewLimiter()
	if ok, retry := limiter.Allow("", 10); ok || retry != 60 {
		t.Fatalf("expected empty key rejection with 60s retry, got ok=%v retry=%d", ok, retry)
	}
	if ok, _ := limiter.Allow("user-1", 0); ok {
		t.Fatal("expected zero budget to reject")
	}
}
