package assembler

import "student_mentor/backend/go/internal/models"

// WindowConfig bounds the history handed to the model.
type WindowConfig struct {
	// TrimThreshold is the message count (system messages included) from
	// which trimming starts.
	TrimThreshold int
	HeadKeep      int
	TailKeep      int
}

// DefaultWindow keeps everything below 30 messages, otherwise the system
// messages, the first 3 and the last 20 others.
var DefaultWindow = WindowConfig{TrimThreshold: 30, HeadKeep: 3, TailKeep: 20}

// BoundHistory applies DefaultWindow.
func BoundHistory(msgs []models.Message) []models.Message {
	return DefaultWindow.Bound(msgs)
}

// Bound returns a new slice; msgs is never modified. Above the threshold the
// result is [system...] + [first HeadKeep others] + [last TailKeep others],
// which is positional and skips the middle. When head and tail overlap each
// message appears once.
func (w WindowConfig) Bound(msgs []models.Message) []models.Message {
	if len(msgs) < w.TrimThreshold {
		return append([]models.Message(nil), msgs...)
	}

	var system, others []models.Message
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}

	head := min(max(w.HeadKeep, 0), len(others))
	tailStart := max(len(others)-max(w.TailKeep, 0), head)

	out := make([]models.Message, 0, len(system)+head+len(others)-tailStart)
	out = append(out, system...)
	out = append(out, others[:head]...)
	out = append(out, others[tailStart:]...)
	return out
}
