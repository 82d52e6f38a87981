package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON-encoded values to a single topic.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *logger.Logger
}

// NewPublisher wraps writer. topic is only used for logging.
func NewPublisher(writer MessageWriter, topic string, logger *logger.Logger) *Publisher {
	return &Publisher{writer: writer, topic: topic, logger: logger}
}

// Publish marshals value and writes it under key.
func (p *Publisher) Publish(ctx context.Context, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal message for Kafka")
		return fmt.Errorf("marshal kafka message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.topic}).Error("Failed to write message to Kafka")
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
