package models

// StreamEventKind discriminates StreamEvent.
type StreamEventKind string

const (
	EventChunk StreamEventKind = "chunk"
	EventEnd   StreamEventKind = "end"
	EventError StreamEventKind = "error"
)

// StreamErrorKind classifies a terminal stream failure.
type StreamErrorKind string

const (
	ErrKindModelInvocation StreamErrorKind = "model_invocation"
	ErrKindPersistence     StreamErrorKind = "persistence"
	ErrKindCanceled        StreamErrorKind = "canceled"
)

// PublicMessage is the text shown to the student for a failure of kind k.
// Provider and storage details stay in the server log.
func (k StreamErrorKind) PublicMessage() string {
	switch k {
	case ErrKindPersistence:
		return "the reply could not be saved, please try again"
	case ErrKindCanceled:
		return "the request was canceled"
	default:
		return "the mentor is unavailable right now, please try again"
	}
}

// StreamEvent is one item of a mentor response stream: a text chunk, the
// terminal end marker carrying the conversation id, or a terminal error.
type StreamEvent struct {
	Kind           StreamEventKind `json:"kind"`
	Text           string          `json:"text,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	ErrorKind      StreamErrorKind `json:"error_kind,omitempty"`
	Message        string          `json:"message,omitempty"`
}

func TextChunk(text string) StreamEvent {
	return StreamEvent{Kind: EventChunk, Text: text}
}

func StreamEnd(conversationID string) StreamEvent {
	return StreamEvent{Kind: EventEnd, ConversationID: conversationID}
}

func StreamError(kind StreamErrorKind, message string) StreamEvent {
	return StreamEvent{Kind: EventError, ErrorKind: kind, Message: message}
}

// Terminal reports whether no further events follow e.
func (e StreamEvent) Terminal() bool {
	return e.Kind == EventEnd || e.Kind == EventError
}
