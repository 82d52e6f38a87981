package shardqueue

import (
	"errors"
	"fmt"

	backoff "github.com/cenkalti/backoff/v4"
)

// ErrQueueFull reports transient back-pressure: the shard queue was full
// when Submit tried to enqueue a job.
var ErrQueueFull = errors.New("shard queue full")

// ErrExecutorClosed reports that the executor has been stopped.
var ErrExecutorClosed = errors.New("shard executor closed")

// QueueFullError carries diagnostics while satisfying errors.Is(_, ErrQueueFull).
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("shard queue %d full (len=%d cap=%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}
