// Package store persists students, their facts, conversation logs and the
// fact-event log.
package store

import (
	"context"
	"strings"
	"time"

	"student_mentor/backend/go/internal/models"
)

// Students stores student profiles and their live fact buckets.
type Students interface {
	Create(ctx context.Context, s *models.Student) (string, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	GetByEmail(ctx context.Context, email string) (*models.Student, error)
	Update(ctx context.Context, id string, upd models.StudentUpdate) (*models.Student, error)
	Facts(ctx context.Context, id string) (models.StudentFacts, error)
	// UpsertFact overwrites facts.<category>.<key>. Keys must already be
	// sanitised with SanitizeKey.
	UpsertFact(ctx context.Context, id string, category models.FactCategory, key string, entry models.FactEntry) error
}

// Conversations stores append-only conversation logs.
type Conversations interface {
	// GetOrCreateForStudent returns the student's canonical conversation,
	// creating it with the system greeting when missing.
	GetOrCreateForStudent(ctx context.Context, studentID string) (*models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, id string, msg models.Message) error
	Messages(ctx context.Context, id string) ([]models.Message, error)
	Recent(ctx context.Context, studentID string, limit int) ([]*models.Conversation, error)
	UpdateSummary(ctx context.Context, id, summary string, at time.Time) error
}

// FactEvents is the immutable history of every extracted fact.
type FactEvents interface {
	Append(ctx context.Context, ev *models.FactEvent) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.FactEvent, error)
}

// Store groups the three collections.
type Store struct {
	Students      Students
	Conversations Conversations
	FactEvents    FactEvents
}

// DefaultRecentLimit matches how many conversations the mentor lists by default.
const DefaultRecentLimit = 5

// SanitizeKey makes key safe to use as a document field path segment.
func SanitizeKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	k = strings.ReplaceAll(k, ".", "_")
	if strings.HasPrefix(k, "$") {
		k = "_" + k[1:]
	}
	if k == "" {
		return "", invalid("empty fact key")
	}
	return k, nil
}

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0 || c != c:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// ApplyExtraction records every extracted fact in the event log and then
// overwrites the live entry. It stops at the first failure and returns the
// events written so far.
func ApplyExtraction(ctx context.Context, st Store, studentID, conversationID string, result models.FactExtractionResult, now time.Time) ([]models.FactEvent, error) {
	applied := make([]models.FactEvent, 0, len(result.ExtractedFacts))
	for _, f := range result.ExtractedFacts {
		key, err := SanitizeKey(f.Key)
		if err != nil {
			return applied, err
		}
		if _, err := models.ParseFactCategory(string(f.Category)); err != nil {
			return applied, invalid("%v", err)
		}
		category := models.FactCategory(strings.ToLower(string(f.Category)))
		conf := ClampConfidence(f.Confidence)

		ev := models.FactEvent{
			StudentID:      studentID,
			ConversationID: conversationID,
			Category:       category,
			Key:            key,
			Value:          f.Value,
			Status:         models.ParseFactStatus(string(f.Status)),
			Confidence:     conf,
			ExtractedAt:    now,
		}
		if err := st.FactEvents.Append(ctx, &ev); err != nil {
			return applied, err
		}
		entry := models.FactEntry{Value: f.Value, LastUpdated: now, Confidence: conf}
		if err := st.Students.UpsertFact(ctx, studentID, category, key, entry); err != nil {
			return applied, err
		}
		applied = append(applied, ev)
	}
	return applied, nil
}

func validateNewStudent(s *models.Student) error {
	if s == nil {
		return invalid("student is nil")
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name is required")
	}
	if models.NormalizeEmail(s.Email) == "" {
		return invalid("email is required")
	}
	if s.Year != nil && *s.Year < 0 {
		return invalid("year must not be negative")
	}
	return nil
}

func validateUpdate(upd models.StudentUpdate) error {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return invalid("name must not be empty")
	}
	if upd.Year != nil && *upd.Year < 0 {
		return invalid("year must not be negative")
	}
	return nil
}

func validateMessage(msg models.Message) error {
	switch msg.Role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		return nil
	}
	return invalid("unknown role %q", msg.Role)
}
