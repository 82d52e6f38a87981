// Package sentinel implements the plain-text form of a mentor reply stream:
// text fragments followed by one in-band marker carrying either the resolved
// conversation id or the kind of failure.
package sentinel

import (
	"strings"

	"student_mentor/backend/go/internal/models"
)

const (
	convOpen  = "<CONVERSATION_ID>"
	convClose = "</CONVERSATION_ID>"
	errOpen   = "<STREAM_ERROR>"
	errClose  = "</STREAM_ERROR>"
)

// Encode returns the terminal marker for a successful reply.
func Encode(conversationID string) string {
	return convOpen + conversationID + convClose
}

// EncodeError returns the terminal marker for a failed reply.
func EncodeError(kind models.StreamErrorKind) string {
	return errOpen + string(kind) + errClose
}

// Parse returns the conversation id if fragment is exactly one marker.
func Parse(fragment string) (string, bool) {
	return unwrap(fragment, convOpen, convClose)
}

// ParseError returns the error kind if fragment is exactly one error marker.
func ParseError(fragment string) (models.StreamErrorKind, bool) {
	kind, ok := unwrap(fragment, errOpen, errClose)
	return models.StreamErrorKind(kind), ok
}

func unwrap(fragment, open, close string) (string, bool) {
	if !strings.HasPrefix(fragment, open) || !strings.HasSuffix(fragment, close) || len(fragment) < len(open)+len(close) {
		return "", false
	}
	return fragment[len(open) : len(fragment)-len(close)], true
}

// Collect joins the text fragments and strips markers. ok is false when no
// conversation id marker was seen, which is how a failed reply looks.
func Collect(fragments []string) (text, conversationID string, ok bool) {
	var b strings.Builder
	for _, f := range fragments {
		if id, isID := Parse(f); isID {
			conversationID, ok = id, true
			continue
		}
		if _, isErr := ParseError(f); isErr {
			continue
		}
		b.WriteString(f)
	}
	return b.String(), conversationID, ok
}

// ToFragment renders one structured event as a plain-text fragment.
func ToFragment(ev models.StreamEvent) string {
	switch ev.Kind {
	case models.EventChunk:
		return ev.Text
	case models.EventEnd:
		return Encode(ev.ConversationID)
	case models.EventError:
		return EncodeError(ev.ErrorKind)
	}
	return ""
}

// ToFragments converts a whole structured stream.
func ToFragments(events []models.StreamEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		if f := ToFragment(ev); f != "" {
			out = append(out, f)
		}
	}
	return out
}
