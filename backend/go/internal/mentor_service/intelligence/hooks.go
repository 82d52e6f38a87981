package intelligence

import (
	"context"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
)

// ContradictionHandler receives contradictions reported by the extraction
// model. They never change stored facts.
type ContradictionHandler func(ctx context.Context, studentID string, contradictions []models.Contradiction)

// LogContradictions logs each contradiction at warn level.
func LogContradictions(log *logger.Logger) ContradictionHandler {
	return func(_ context.Context, studentID string, contradictions []models.Contradiction) {
		for _, c := range contradictions {
			log.WithStudent(studentID).WithPayload(map[string]interface{}{
				"existing":        c.Existing,
				"new_information": c.NewInformation,
				"resolution":      c.Resolution,
			}).Warn("extraction reported a contradiction")
		}
	}
}

// FactEventPublisher broadcasts fact events after they are stored.
type FactEventPublisher interface {
	PublishFactEvent(ctx context.Context, ev models.FactEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishFactEvent(context.Context, models.FactEvent) error { return nil }
