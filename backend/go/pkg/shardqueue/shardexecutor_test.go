package shardqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardExecutor_FIFOPerKey(t *testing.T) {
	p := NewShardExecutor(Config{Shards: 4, QueueSize: 16})
	defer p.Stop()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 10; i++ {
		v := i
		require.NoError(t, p.Submit(context.Background(), "student-1", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return nil
		})))
	}
	require.NoError(t, p.Barrier(context.Background(), "student-1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestShardExecutor_RetriesThenSucceeds(t *testing.T) {
	p := NewShardExecutor(Config{Shards: 1, MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	defer p.Stop()

	var attempts int32
	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})))
	require.NoError(t, p.Barrier(context.Background(), "k"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestShardExecutor_PermanentErrorIsNotRetried(t *testing.T) {
	var (
		mu      sync.Mutex
		handled []error
	)
	p := NewShardExecutor(Config{
		Shards:      1,
		MaxAttempts: 5,
		BaseBackoff: time.Millisecond,
		ErrorHandler: func(key string, err error) {
			mu.Lock()
			handled = append(handled, err)
			mu.Unlock()
		},
	})
	defer p.Stop()

	bad := errors.New("bad input")
	var attempts int32
	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return Permanent(bad)
	})))
	require.NoError(t, p.Barrier(context.Background(), "k"))

	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handled, 1)
	assert.ErrorIs(t, handled[0], bad)
}

func TestShardExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	handled := make(chan error, 1)
	p := NewShardExecutor(Config{
		Shards:       1,
		MaxAttempts:  2,
		BaseBackoff:  time.Millisecond,
		ErrorHandler: func(_ string, err error) { handled <- err },
	})
	defer p.Stop()

	boom := errors.New("boom")
	var attempts int32
	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return boom
	})))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("error handler not called")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestShardExecutor_QueueFull(t *testing.T) {
	p := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})))
	<-started

	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil })))
	err := p.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil }))
	assert.ErrorIs(t, err, ErrQueueFull)
	var qf *QueueFullError
	require.ErrorAs(t, err, &qf)
	assert.Equal(t, 1, qf.Capacity)
	close(release)
}

func TestShardExecutor_StopDrainsAndRejects(t *testing.T) {
	p := NewShardExecutor(Config{Shards: 2, QueueSize: 32})

	var ran int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})))
	}
	p.Stop()
	p.Stop()

	assert.EqualValues(t, 20, atomic.LoadInt32(&ran))
	assert.ErrorIs(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil })), ErrExecutorClosed)
}

func TestShardExecutor_PanickingJobDoesNotKillWorker(t *testing.T) {
	handled := make(chan error, 1)
	p := NewShardExecutor(Config{Shards: 1, ErrorHandler: func(_ string, err error) { handled <- err }})
	defer p.Stop()

	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error { panic("kaboom") })))
	require.Error(t, <-handled)
	require.NoError(t, p.Barrier(context.Background(), "k"))
}

func TestShardExecutor_CancelledJobIsSkipped(t *testing.T) {
	handled := make(chan error, 1)
	p := NewShardExecutor(Config{Shards: 1, ErrorHandler: func(_ string, err error) { handled <- err }})
	defer p.Stop()

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		<-release
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	require.NoError(t, p.Submit(ctx, "k", JobFunc(func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})))
	cancel()
	close(release)

	assert.ErrorIs(t, <-handled, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&ran))
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SQ_SHARDS", "8")
	t.Setenv("SQ_ENQUEUE_TIMEOUT", "250ms")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Shards)
	assert.Equal(t, 128, cfg.QueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.EnqueueTimeout)
	assert.Nil(t, cfg.Logger)
}
