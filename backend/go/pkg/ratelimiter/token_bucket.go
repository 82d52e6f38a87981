package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to capacity and refills at rate tokens/second.
type TokenBucket struct {
	rate          float64
	capacity      float64
	tokens        float64
	lastTokenTime time.Time
	now           func() time.Time
	mutex         sync.Mutex
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return newTokenBucket(rate, capacity, time.Now)
}

func newTokenBucket(rate float64, capacity int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		rate:          rate,
		capacity:      float64(capacity),
		tokens:        float64(capacity),
		lastTokenTime: now(),
		now:           now,
	}
}

// Allow refills by elapsed time and consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.lastTokenTime); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTokenTime = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
