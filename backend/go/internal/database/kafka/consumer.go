package kafka

import (
	"context"
	"errors"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message. A returned error is logged and the message
// is still committed; retries belong inside the handler.
type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer runs a fetch -> handle -> commit loop over a reader.
type Consumer struct {
	reader MessageReader
	logger *logger.Logger
	done   chan struct{}
}

// NewConsumer creates a consumer over reader.
func NewConsumer(reader MessageReader, logger *logger.Logger) *Consumer {
	return &Consumer{reader: reader, logger: logger, done: make(chan struct{})}
}

// Start begins consuming in a goroutine until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Info("Stopping Kafka consumer...")
					return
				}
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("Error handling Kafka message")
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
			}
		}
	}()
}

// Done is closed once the consume loop has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
