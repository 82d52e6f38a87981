package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/util"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentor",
	Subsystem: "student_cache",
	Name:      "lookups_total",
	Help:      "Student cache lookups by backend and result.",
}, []string{"backend", "result"})

// StudentCache holds whole student documents keyed by id. Failures are
// treated as misses.
type StudentCache interface {
	Get(ctx context.Context, id string) (*models.Student, bool)
	Set(ctx context.Context, s *models.Student)
	Invalidate(ctx context.Context, id string)
}

// CachedStudents is a read-through cache in front of a Students store.
// Writes go to the store first and then drop the cached copy. A read that
// overlapped any write in this process does not fill the cache.
type CachedStudents struct {
	Students
	cache StudentCache

	mu         sync.Mutex
	generation uint64
}

// NewCachedStudents wraps inner with cache.
func NewCachedStudents(inner Students, cache StudentCache) *CachedStudents {
	return &CachedStudents{Students: inner, cache: cache}
}

func (c *CachedStudents) Get(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := c.cache.Get(ctx, id); ok {
		return s, nil
	}
	gen := c.currentGeneration()
	s, err := c.Students.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.cache.Set(ctx, s)
	}
	c.mu.Unlock()
	return s, nil
}

func (c *CachedStudents) Update(ctx context.Context, id string, upd models.StudentUpdate) (*models.Student, error) {
	s, err := c.Students.Update(ctx, id, upd)
	c.invalidate(ctx, id)
	return s, err
}

func (c *CachedStudents) UpsertFact(ctx context.Context, id string, category models.FactCategory, key string, entry models.FactEntry) error {
	err := c.Students.UpsertFact(ctx, id, category, key, entry)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedStudents) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *CachedStudents) invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Invalidate(ctx, id)
}

// LRUStudentCache keeps students in process memory.
type LRUStudentCache struct {
	lru *util.LRUCache[string, *models.Student]
}

// NewLRUStudentCache holds up to capacity students for ttl each.
func NewLRUStudentCache(capacity int, ttl time.Duration) (*LRUStudentCache, error) {
	lru, err := util.NewWithConfig(util.CacheConfig[string, *models.Student]{Capacity: capacity, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &LRUStudentCache{lru: lru}, nil
}

func (c *LRUStudentCache) Get(_ context.Context, id string) (*models.Student, bool) {
	s, ok := c.lru.Get(id)
	if !ok {
		cacheLookups.WithLabelValues("lru", "miss").Inc()
		return nil, false
	}
	cacheLookups.WithLabelValues("lru", "hit").Inc()
	return copyStudent(s), true
}

func (c *LRUStudentCache) Set(_ context.Context, s *models.Student) {
	c.lru.Put(s.ID, copyStudent(s), 1)
}

func (c *LRUStudentCache) Invalidate(_ context.Context, id string) {
	c.lru.Delete(id)
}

// RedisStudentCache stores students as JSON so several service processes
// share one view.
type RedisStudentCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

const redisStudentKeyPrefix = "mentor:student:"

// NewRedisStudentCache caches entries for ttl.
func NewRedisStudentCache(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisStudentCache {
	return &RedisStudentCache{client: client, ttl: ttl, log: log}
}

func (c *RedisStudentCache) Get(ctx context.Context, id string) (*models.Student, bool) {
	raw, err := c.client.Get(ctx, redisStudentKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithErr(err).WithPayload(map[string]interface{}{"student_id": id}).Warn("student cache read failed")
		}
		cacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	var s models.Student
	if err := json.Unmarshal(raw, &s); err != nil {
		c.log.WithErr(err).Warn("student cache entry is corrupt, dropping it")
		c.Invalidate(ctx, id)
		cacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	cacheLookups.WithLabelValues("redis", "hit").Inc()
	return &s, true
}

func (c *RedisStudentCache) Set(ctx context.Context, s *models.Student) {
	raw, err := json.Marshal(s)
	if err != nil {
		c.log.WithErr(err).Warn("student cache encode failed")
		return
	}
	if err := c.client.Set(ctx, redisStudentKeyPrefix+s.ID, raw, c.ttl).Err(); err != nil {
		c.log.WithErr(err).Warn("student cache write failed")
	}
}

func (c *RedisStudentCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, redisStudentKeyPrefix+id).Err(); err != nil {
		c.log.WithErr(err).Warn("student cache invalidate failed")
	}
}
