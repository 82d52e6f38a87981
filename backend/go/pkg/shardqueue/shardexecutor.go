// Package shardqueue provides a sharded work queue that keeps FIFO order per
// key while running different shards in parallel.
//
// Callers must not Submit concurrently for the same key when they rely on
// FIFO ordering; ordering follows the order in which Submit calls return.
package shardqueue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by a stable
// hash of the key. Jobs for one key run one at a time in submission order.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob

	done       chan struct{} // closed in Stop()
	stopCtx    context.Context
	stopCancel context.CancelFunc
	closed     uint32

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()
	stopCtx, stopCancel := context.WithCancel(context.Background())
	p := &ShardExecutor{
		cfg:        cfg,
		queues:     make([]chan queuedJob, cfg.Shards),
		done:       make(chan struct{}),
		stopCtx:    stopCtx,
		stopCancel: stopCancel,
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job on the shard derived from key.
//
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns a *QueueFullError (errors.Is ErrQueueFull) if the shard stays
//     full for EnqueueTimeout.
//   - Returns ctx.Err() if ctx is cancelled first.
//
// ctx is also handed to the job when it runs.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, key: key, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-p.done:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before the call has finished.
func (p *ShardExecutor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	if err := p.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(done)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop rejects new work, lets every worker drain its queue, and waits for
// them to exit. Pending retries are abandoned. Stop is idempotent.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}
	p.cfg.Logger.WithPayload(map[string]interface{}{"shards": p.cfg.Shards}).Info("shardqueue: stopping executor, draining shards")
	close(p.done)
	p.stopCancel()
	p.wg.Wait()
	p.cfg.Logger.Info("shardqueue: executor stopped")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			p.execute(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-p.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					p.execute(label, qj)
					drained++
				default:
					if drained > 0 {
						p.cfg.Logger.WithPayload(map[string]interface{}{"shard": idx, "drained": drained}).Info("shardqueue: worker drained remaining jobs")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs one job with retries, never letting a panic kill the worker.
func (p *ShardExecutor) execute(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			failuresTotal.WithLabelValues(label).Inc()
			p.safeHandleError(qj.key, fmt.Errorf("shardqueue: job panic: %v", r))
		}
	}()

	if err := qj.ctx.Err(); err != nil {
		p.safeHandleError(qj.key, err)
		return
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0

	// Waits between attempts end early on Stop or when the job's ctx ends.
	waitCtx, cancel := context.WithCancel(qj.ctx)
	defer cancel()
	unregister := context.AfterFunc(p.stopCtx, cancel)
	defer unregister()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.cfg.MaxAttempts-1)), waitCtx)

	var lastErr error
	err := backoff.Retry(func() error {
		start := time.Now()
		lastErr = qj.job.Run(qj.ctx)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		return lastErr
	}, policy)
	if err == nil {
		return
	}
	if lastErr != nil && !errors.Is(lastErr, err) && !errors.Is(err, lastErr) {
		err = errors.Join(lastErr, err)
	}
	failuresTotal.WithLabelValues(label).Inc()
	p.safeHandleError(qj.key, err)
}

func (p *ShardExecutor) safeHandleError(key string, err error) {
	if err == nil || p.cfg.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.WithPayload(map[string]interface{}{"panic": fmt.Sprint(r)}).Error("shardqueue: error handler panic")
		}
	}()
	p.cfg.ErrorHandler(key, err)
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
