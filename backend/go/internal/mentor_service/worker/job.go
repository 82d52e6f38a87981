// Package worker runs fact extraction in the background, either in process
// or across a Kafka topic.
package worker

import (
	"context"
	"time"

	"student_mentor/backend/go/internal/llm"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/shardqueue"
)

// ExtractionJob is one finished exchange waiting for fact extraction.
type ExtractionJob struct {
	StudentID        string    `json:"student_id"`
	ConversationID   string    `json:"conversation_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	QueuedAt         time.Time `json:"queued_at"`
}

// FactExtractor is satisfied by *intelligence.Extractor.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, studentID, conversationID, userMessage, assistantMessage string) (models.FactExtractionResult, error)
}

// Dispatcher hands a job to whatever runs extraction. It must not wait for
// the extraction itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, job ExtractionJob) error
}

// Run wraps job as a shardqueue job. Only model failures are retried; a
// partially applied extraction would duplicate fact events if run again.
func Run(extractor FactExtractor, job ExtractionJob) shardqueue.Job {
	return shardqueue.JobFunc(func(ctx context.Context) error {
		_, err := extractor.ExtractFacts(ctx, job.StudentID, job.ConversationID, job.UserMessage, job.AssistantMessage)
		if err != nil && !llm.IsModelError(err) {
			return shardqueue.Permanent(err)
		}
		return err
	})
}

// LogFailures is a shardqueue ErrorHandler that logs jobs that gave up.
func LogFailures(log *logger.Logger) func(key string, err error) {
	return func(key string, err error) {
		log.WithStudent(key).WithErr(err).Error("fact extraction failed")
	}
}
