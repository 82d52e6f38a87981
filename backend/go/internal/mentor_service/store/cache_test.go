package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStudents struct {
	Students
	gets int
}

func (c *countingStudents) Get(ctx context.Context, id string) (*models.Student, error) {
	c.gets++
	return c.Students.Get(ctx, id)
}

func TestCachedStudents_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)
	inner := &countingStudents{Students: st.Students}
	lru, err := NewLRUStudentCache(8, time.Minute)
	require.NoError(t, err)
	cached := NewCachedStudents(inner, lru)

	_, err = cached.Get(ctx, id)
	require.NoError(t, err)
	s, err := cached.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)

	s.Name = "mutated by caller"
	s, _ = cached.Get(ctx, id)
	assert.Equal(t, "Ada", s.Name)

	require.NoError(t, cached.UpsertFact(ctx, id, models.CategoryCareer, "goal", models.FactEntry{Value: "SWE", Confidence: 1}))
	s, err = cached.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
	_, ok := s.Facts.Career.Get("goal")
	assert.True(t, ok)

	_, err = cached.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// pausedStudents blocks the first Get after reading, until release is closed.
type pausedStudents struct {
	Students
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausedStudents) Get(ctx context.Context, id string) (*models.Student, error) {
	s, err := p.Students.Get(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return s, err
}

func TestCachedStudents_ReadOverlappingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)
	inner := &pausedStudents{Students: st.Students, read: make(chan struct{}), release: make(chan struct{})}
	lru, err := NewLRUStudentCache(8, time.Minute)
	require.NoError(t, err)
	cached := NewCachedStudents(inner, lru)

	done := make(chan *models.Student, 1)
	go func() {
		s, err := cached.Get(ctx, id)
		assert.NoError(t, err)
		done <- s
	}()
	<-inner.read

	require.NoError(t, cached.UpsertFact(ctx, id, models.CategoryAcademic, "gpa", models.FactEntry{Value: 3.9, Confidence: 1}))
	close(inner.release)

	stale := <-done
	_, ok := stale.Facts.Academic.Get("gpa")
	assert.False(t, ok)

	_, cachedNow := lru.Get(ctx, id)
	assert.False(t, cachedNow)

	fresh, err := cached.Get(ctx, id)
	require.NoError(t, err)
	gpa, ok := fresh.Facts.Academic.Get("gpa")
	require.True(t, ok)
	assert.Equal(t, 3.9, gpa.Value)
}

func TestRedisStudentCache(t *testing.T) {
	addr := os.Getenv("MENTOR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MENTOR_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	c := NewRedisStudentCache(client, time.Minute, logger.Discard())
	s := &models.Student{ID: "cache-test-student", Name: "Ada"}
	s.Facts = s.Facts.With(models.CategoryAcademic, "gpa", models.FactEntry{Value: 3.8, Confidence: 1})

	c.Set(ctx, s)
	got, ok := c.Get(ctx, s.ID)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Name)
	gpa, _ := got.Facts.Academic.Get("gpa")
	assert.Equal(t, 3.8, gpa.Value)

	c.Invalidate(ctx, s.ID)
	_, ok = c.Get(ctx, s.ID)
	assert.False(t, ok)
}
