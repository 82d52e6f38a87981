package kafka

import (
	"context"

	"student_mentor/backend/go/internal/models"
)

// FactEventPublisher broadcasts fact-event records so other services can
// follow changes to student profiles.
type FactEventPublisher struct {
	publisher *Publisher
}

// NewFactEventPublisher wraps a topic publisher.
func NewFactEventPublisher(p *Publisher) *FactEventPublisher {
	return &FactEventPublisher{publisher: p}
}

// PublishFactEvent writes ev keyed by student so one student's events stay ordered.
func (p *FactEventPublisher) PublishFactEvent(ctx context.Context, ev models.FactEvent) error {
	return p.publisher.Publish(ctx, ev.StudentID, ev)
}

// Close closes the underlying writer.
func (p *FactEventPublisher) Close() error {
	return p.publisher.Close()
}
