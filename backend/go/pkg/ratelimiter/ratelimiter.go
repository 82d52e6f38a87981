package ratelimiter

// RateLimiter decides whether one more request may proceed right now.
type RateLimiter interface {
	Allow() bool
}

// KeyedRateLimiter applies an independent budget per key, e.g. per student.
type KeyedRateLimiter interface {
	AllowKey(key string) bool
}
