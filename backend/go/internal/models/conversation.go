package models

import "time"

// Role tags the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MentorTypePrimary is the only mentor persona served today.
const MentorTypePrimary = "primary"

// SystemGreeting is the first message of every conversation.
const SystemGreeting = "I am an AI mentor for undergraduate students, providing support in academics, career planning, and mental wellbeing."

// Message is one entry of a conversation log. Messages are never edited.
type Message struct {
	Role      Role      `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// NewMessage stamps a message with now.
func NewMessage(role Role, content string, now time.Time) Message {
	return Message{Role: role, Content: content, Timestamp: now}
}

// Conversation is the ordered message log between a student and the mentor.
type Conversation struct {
	ID               string     `bson:"_id,omitempty" json:"id"`
	StudentID        string     `bson:"student_id" json:"student_id"`
	MentorType       string     `bson:"mentor_type" json:"mentor_type"`
	Messages         []Message  `bson:"messages" json:"messages"`
	Summary          string     `bson:"summary,omitempty" json:"summary,omitempty"`
	SummaryUpdatedAt *time.Time `bson:"summary_updated_at,omitempty" json:"summary_updated_at,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

// NewConversation builds a conversation seeded with the system greeting.
func NewConversation(id, studentID string, now time.Time) *Conversation {
	return &Conversation{
		ID:         id,
		StudentID:  studentID,
		MentorType: MentorTypePrimary,
		Messages:   []Message{NewMessage(RoleSystem, SystemGreeting, now)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithoutSystem returns the messages a student would see.
func WithoutSystem(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
