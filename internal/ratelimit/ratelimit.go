package ratelimit

import (
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens       float64
	capacity     float64
	refillPerSec float64
	lastRefill   time.Time
}

// Limiter is a per-key token bucket. The chatbot handler keys it by user ID
// so one chatty citizen cannot exhaust the shared AI budget.
type Limiter struct {
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter() *Limiter {
	return &Limiter{
		now:     func() time.Time { return time.Now().UTC() },
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether the caller identified by key may proceed under a
// budget of rpm requests per minute, and if not, how many seconds to wait.
func (l *Limiter) Allow(key string, rpm int) (bool, int) {
	if rpm <= 0 || key == "" {
		return false, 60
	}

	now := l.now()
	capacity := float64(rpm)
	refillPerSec := capacity / 60.0

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{
			tokens:       capacity - 1,
			capacity:     capacity,
			refillPerSec: refillPerSec,
			lastRefill:   now,
		}
		return true, 0
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+(elapsed*b.refillPerSec))
		b.lastRefill = now
	}
	if b.capacity != capacity || b.refillPerSec != refillPerSec {
		b.capacity = capacity
		b.refillPerSec = refillPerSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}

	if b.tokens >= 1 {
		b.tokens -= 1
		return true, 0
	}

	deficit := 1 - b.tokens
	retrySeconds := int(math.Ceil(deficit / b.refillPerSec))
	if retrySeconds < 1 {
		retrySeconds = 1
	}
	return false, retrySeconds
}
