package ratelimiter

import (
	"time"

	"student_mentor/backend/go/pkg/util"
)

// KeyedLimiter keeps one TokenBucket per key. Buckets live in an LRU so the
// number of tracked keys stays bounded; an evicted key starts over with a
// full bucket.
type KeyedLimiter struct {
	rate     float64
	capacity int
	now      func() time.Time
	buckets  *util.LRUCache[string, *TokenBucket]
}

// NewKeyedLimiter tracks at most maxKeys keys.
func NewKeyedLimiter(rate float64, capacity, maxKeys int) (*KeyedLimiter, error) {
	return newKeyedLimiter(rate, capacity, maxKeys, time.Now)
}

func newKeyedLimiter(rate float64, capacity, maxKeys int, now func() time.Time) (*KeyedLimiter, error) {
	buckets, err := util.NewWithConfig(util.CacheConfig[string, *TokenBucket]{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &KeyedLimiter{rate: rate, capacity: capacity, now: now, buckets: buckets}, nil
}

// AllowKey consumes a token from key's bucket.
func (l *KeyedLimiter) AllowKey(key string) bool {
	b := l.buckets.GetOrPut(key, func() *TokenBucket {
		return newTokenBucket(l.rate, l.capacity, l.now)
	})
	return b.Allow()
}
