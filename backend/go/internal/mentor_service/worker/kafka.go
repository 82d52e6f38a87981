package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"student_mentor/backend/go/internal/database/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// KafkaDispatcher publishes jobs to a topic consumed by the fact worker.
type KafkaDispatcher struct {
	publisher *kafka.Publisher
}

func NewKafkaDispatcher(p *kafka.Publisher) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: p}
}

// Dispatch publishes job keyed by student so one student's jobs stay on one
// partition and keep their order.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, job ExtractionJob) error {
	return d.publisher.Publish(ctx, job.StudentID, job)
}

// Close closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	return d.publisher.Close()
}

// KafkaConsumer feeds jobs read from Kafka into a local dispatcher. A message
// is committed once its job is queued, not once it has run.
type KafkaConsumer struct {
	consumer *kafka.Consumer
	local    Dispatcher
}

func NewKafkaConsumer(consumer *kafka.Consumer, local Dispatcher) *KafkaConsumer {
	return &KafkaConsumer{consumer: consumer, local: local}
}

// Start consumes until ctx is cancelled. Done reports when the loop exits.
func (c *KafkaConsumer) Start(ctx context.Context) {
	c.consumer.Start(ctx, c.handle)
}

func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.consumer.Done()
}

func (c *KafkaConsumer) Close() error {
	return c.consumer.Close()
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	var job ExtractionJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("decode extraction job: %w", err)
	}
	if job.StudentID == "" {
		return fmt.Errorf("extraction job at offset %d has no student id", msg.Offset)
	}
	return c.local.Dispatch(context.WithoutCancel(ctx), job)
}
