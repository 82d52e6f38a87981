package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"student_mentor/backend/go/internal/models"
)

// SignupRequest carries the profile entered at signup. Passwords are not
// part of it; there is no authentication.
type SignupRequest struct {
	Name       string
	Email      string
	University string
	Program    string
	Year       *int
}

// Session is what a student needs to start chatting.
type Session struct {
	StudentID      string `json:"student_id"`
	ConversationID string `json:"conversation_id"`
}

// Summarizer is satisfied by *intelligence.Extractor.
type Summarizer interface {
	SummarizeConversation(ctx context.Context, conversationID string) (string, error)
}

// ErrSummariesDisabled is returned by Summarize when no Summarizer is set.
var ErrSummariesDisabled = errors.New("conversation summaries are not enabled")

// WithSummarizer enables Summarize.
func WithSummarizer(sum Summarizer) Option {
	return func(s *MentorService) { s.summarizer = sum }
}

// SignUp creates a student profile and returns its id.
func (s *MentorService) SignUp(ctx context.Context, req SignupRequest) (string, error) {
	id, err := s.store.Students.Create(ctx, &models.Student{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		University: strings.TrimSpace(req.University),
		Program:    strings.TrimSpace(req.Program),
		Year:       req.Year,
	})
	if err != nil {
		return "", err
	}
	s.logger.WithStudent(id).Info("student signed up")
	return id, nil
}

// Login looks the student up by email and returns their canonical
// conversation, creating it on first login.
func (s *MentorService) Login(ctx context.Context, email string) (Session, error) {
	student, err := s.store.Students.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	conv, err := s.store.Conversations.GetOrCreateForStudent(ctx, student.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{StudentID: student.ID, ConversationID: conv.ID}, nil
}

// UpdateProfile changes the profile fields set in upd and logs the change.
func (s *MentorService) UpdateProfile(ctx context.Context, id string, upd models.StudentUpdate) (*models.Student, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	st, err := s.store.Students.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.WithStudent(id).Info("student profile updated")
	return st, nil
}

// Conversations lists the student's most recently active conversations
// without their messages. limit <= 0 means the store default.
func (s *MentorService) Conversations(ctx context.Context, studentID string, limit int) ([]*models.Conversation, error) {
	if _, err := s.store.Students.Get(ctx, studentID); err != nil {
		return nil, err
	}
	convs, err := s.store.Conversations.Recent(ctx, studentID, limit)
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		c.Messages = nil
	}
	return convs, nil
}

// Student returns the profile including facts.
func (s *MentorService) Student(ctx context.Context, id string) (*models.Student, error) {
	return s.store.Students.Get(ctx, id)
}

// Facts returns the live fact buckets of a student.
func (s *MentorService) Facts(ctx context.Context, id string) (models.StudentFacts, error) {
	return s.store.Students.Facts(ctx, id)
}

// FactEvents returns the newest extracted-fact records of a student.
func (s *MentorService) FactEvents(ctx context.Context, id string, limit int) ([]models.FactEvent, error) {
	if _, err := s.store.Students.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.FactEvents.ListByStudent(ctx, id, limit)
}

// History returns the student's canonical conversation with the system
// messages removed, the way the chat view shows it.
func (s *MentorService) History(ctx context.Context, studentID string) (*models.Conversation, error) {
	if _, err := s.store.Students.Get(ctx, studentID); err != nil {
		return nil, err
	}
	conv, err := s.store.Conversations.GetOrCreateForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	conv.Messages = models.WithoutSystem(conv.Messages)
	return conv, nil
}

// Summarize generates and stores a summary of the conversation. It waits for
// any in-flight response on the same conversation first.
func (s *MentorService) Summarize(ctx context.Context, conversationID string) (string, error) {
	if s.summarizer == nil {
		return "", ErrSummariesDisabled
	}
	if _, err := s.store.Conversations.Get(ctx, conversationID); err != nil {
		return "", err
	}
	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return "", err
	}
	defer unlock()

	summary, err := s.summarizer.SummarizeConversation(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("summarize conversation %s: %w", conversationID, err)
	}
	return summary, nil
}
