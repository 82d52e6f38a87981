package worker

import (
	"context"

	"student_mentor/backend/go/pkg/shardqueue"
)

// LocalDispatcher runs extraction on an in-process executor keyed by
// student, so merges for one student never interleave.
type LocalDispatcher struct {
	exec      *shardqueue.ShardExecutor
	extractor FactExtractor
}

func NewLocalDispatcher(exec *shardqueue.ShardExecutor, extractor FactExtractor) *LocalDispatcher {
	return &LocalDispatcher{exec: exec, extractor: extractor}
}

// Dispatch enqueues the job. ctx is also the context the job runs with, so
// callers should pass one that outlives the request.
func (d *LocalDispatcher) Dispatch(ctx context.Context, job ExtractionJob) error {
	return d.exec.Submit(ctx, job.StudentID, Run(d.extractor, job))
}

// Wait blocks until every job queued for studentID so far has finished.
func (d *LocalDispatcher) Wait(ctx context.Context, studentID string) error {
	return d.exec.Barrier(ctx, studentID)
}
