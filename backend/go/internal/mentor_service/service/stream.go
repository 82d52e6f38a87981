package service

import (
	"context"
	"errors"
	"sync/atomic"

	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/models"
)

// StreamState is the lifecycle of one mentor response.
type StreamState int32

const (
	StatePending StreamState = iota
	StateStreaming
	StateCompleted
	StateFailed
)

func (s StreamState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stream delivers one response as it is generated. Events is closed after
// the terminal end or error event. Callers must either drain Events or
// cancel the context passed to RespondToStudent.
type Stream struct {
	events         chan models.StreamEvent
	state          atomic.Int32
	conversationID string

	// ctx is the caller's context. Once it is done, remaining events are
	// dropped instead of blocking the completion path.
	ctx     context.Context
	dropped bool
}

func newStream(ctx context.Context, conversationID string) *Stream {
	return &Stream{
		events:         make(chan models.StreamEvent),
		conversationID: conversationID,
		ctx:            ctx,
	}
}

func (s *Stream) Events() <-chan models.StreamEvent { return s.events }

func (s *Stream) State() StreamState { return StreamState(s.state.Load()) }

func (s *Stream) ConversationID() string { return s.conversationID }

func (s *Stream) setState(st StreamState) { s.state.Store(int32(st)) }

// deliver is only called from the producing goroutine.
func (s *Stream) deliver(ev models.StreamEvent) {
	if s.dropped {
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		s.dropped = true
	}
}

// ErrorKind classifies err for the terminal error event.
func ErrorKind(err error) models.StreamErrorKind {
	switch {
	case errors.Is(err, context.Canceled):
		return models.ErrKindCanceled
	case store.IsPersistence(err):
		return models.ErrKindPersistence
	default:
		return models.ErrKindModelInvocation
	}
}
