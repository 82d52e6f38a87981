// Package service implements the mentor conversation flow: resolving the
// conversation, assembling context, streaming the model response and
// scheduling fact extraction.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"student_mentor/backend/go/internal/llm"
	"student_mentor/backend/go/internal/mentor_service/assembler"
	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/mentor_service/worker"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
)

// DefaultChatTemperature is used when Config.ChatTemperature is zero.
const DefaultChatTemperature = 0.7

// Config tunes a MentorService.
type Config struct {
	ChatTemperature float64
	// GenerationTimeout bounds one model call. Zero means no limit.
	GenerationTimeout time.Duration
	Window            assembler.WindowConfig
}

// MentorService answers student messages.
type MentorService struct {
	store      store.Store
	llm        llm.LLM
	assembler  *assembler.Assembler
	dispatcher worker.Dispatcher
	cfg        Config
	locks      *keyedMutex
	logger     *logger.Logger
	summarizer Summarizer
	now        func() time.Time

	mu                 sync.RWMutex
	lastConversationID string
}

// Option configures a MentorService.
type Option func(*MentorService)

func WithLogger(l *logger.Logger) Option {
	return func(s *MentorService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *MentorService) { s.now = now }
}

// New builds a MentorService. dispatcher receives one job per completed
// response; it may be nil to disable extraction.
func New(st store.Store, model llm.LLM, dispatcher worker.Dispatcher, cfg Config, opts ...Option) *MentorService {
	if cfg.ChatTemperature == 0 {
		cfg.ChatTemperature = DefaultChatTemperature
	}
	s := &MentorService{
		store:      st,
		llm:        model,
		assembler:  assembler.New(cfg.Window),
		dispatcher: dispatcher,
		cfg:        cfg,
		locks:      newKeyedMutex(),
		logger:     logger.New("mentor_service", "", ""),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RespondToStudent appends message to the conversation and starts streaming
// the mentor's reply. An empty conversationID selects the student's
// canonical conversation, creating it when needed.
//
// Errors before streaming starts (unknown student or conversation, store
// failures) are returned directly. Later failures arrive as a terminal error
// event on the stream. The model call is not cancelled when ctx is; the
// reply is still stored and extraction still scheduled.
func (s *MentorService) RespondToStudent(ctx context.Context, studentID, message, conversationID string) (*Stream, error) {
	start := s.now()
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is empty", store.ErrValidation)
	}
	log := s.logger.WithStudent(studentID)

	student, err := s.store.Students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	convID, err := s.resolveConversation(ctx, studentID, conversationID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, convID)
	if err != nil {
		return nil, err
	}

	req, err := s.prepare(ctx, student, convID, message)
	if err != nil {
		unlock()
		return nil, err
	}

	stream := newStream(ctx, convID)
	s.setLastConversationID(convID)

	go func() {
		defer close(stream.events)
		final := s.generate(ctx, log, stream, req, unlock, studentID, convID, message)
		responsesTotal.WithLabelValues(stream.State().String(), string(final.ErrorKind)).Inc()
		responseDuration.Observe(s.now().Sub(start).Seconds())
		stream.deliver(final)
	}()
	return stream, nil
}

func (s *MentorService) resolveConversation(ctx context.Context, studentID, conversationID string) (string, error) {
	if conversationID == "" {
		conv, err := s.store.Conversations.GetOrCreateForStudent(ctx, studentID)
		if err != nil {
			return "", err
		}
		return conv.ID, nil
	}
	conv, err := s.store.Conversations.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if conv.StudentID != studentID {
		return "", fmt.Errorf("%w: conversation %s", store.ErrNotFound, conversationID)
	}
	return conv.ID, nil
}

// prepare appends the user message and builds the model request. Called
// with the conversation lock held.
func (s *MentorService) prepare(ctx context.Context, student *models.Student, convID, message string) (*models.GenerateContentRequest, error) {
	if err := s.store.Conversations.AppendMessage(ctx, convID, models.NewMessage(models.RoleUser, message, s.now())); err != nil {
		return nil, err
	}
	msgs, err := s.store.Conversations.Messages(ctx, convID)
	if err != nil {
		return nil, err
	}
	req := s.assembler.Assemble(student, student.Facts, msgs, message).Request(s.cfg.ChatTemperature)
	return &req, nil
}

// generate runs the model call and the completion bookkeeping, then releases
// the conversation lock. It returns the terminal event.
func (s *MentorService) generate(ctx context.Context, log *logger.Logger, stream *Stream, req *models.GenerateContentRequest, unlock func(), studentID, convID, message string) models.StreamEvent {
	defer unlock()

	bg := context.WithoutCancel(ctx)
	genCtx, cancel := bg, context.CancelFunc(func() {})
	if s.cfg.GenerationTimeout > 0 {
		genCtx, cancel = context.WithTimeout(bg, s.cfg.GenerationTimeout)
	}
	defer cancel()

	stream.setState(StateStreaming)
	reply, err := s.collect(genCtx, stream, req)
	if err != nil {
		stream.setState(StateFailed)
		log.WithErr(err).WithPayload(map[string]interface{}{"conversation_id": convID}).Error("model invocation failed")
		kind := ErrorKind(err)
		return models.StreamError(kind, kind.PublicMessage())
	}

	if err := s.store.Conversations.AppendMessage(bg, convID, models.NewMessage(models.RoleAssistant, reply, s.now())); err != nil {
		stream.setState(StateFailed)
		log.WithErr(err).WithPayload(map[string]interface{}{"conversation_id": convID}).Error("failed to store assistant reply")
		return models.StreamError(models.ErrKindPersistence, models.ErrKindPersistence.PublicMessage())
	}

	s.scheduleExtraction(bg, log, worker.ExtractionJob{
		StudentID:        studentID,
		ConversationID:   convID,
		UserMessage:      message,
		AssistantMessage: reply,
		QueuedAt:         s.now(),
	})
	stream.setState(StateCompleted)
	return models.StreamEnd(convID)
}

// collect forwards chunks in arrival order and returns the full reply.
func (s *MentorService) collect(ctx context.Context, stream *Stream, req *models.GenerateContentRequest) (string, error) {
	results, err := s.llm.GenerateContentStream(ctx, req)
	if err != nil {
		return "", err
	}
	var (
		sb        strings.Builder
		streamErr error
	)
	for r := range results {
		if r.Err != nil {
			streamErr = r.Err
			continue
		}
		text := r.Response.Text()
		if text == "" {
			continue
		}
		sb.WriteString(text)
		stream.deliver(models.TextChunk(text))
	}
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	return sb.String(), streamErr
}

func (s *MentorService) scheduleExtraction(ctx context.Context, log *logger.Logger, job worker.ExtractionJob) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		extractionDispatchFailures.Inc()
		log.WithErr(err).WithPayload(map[string]interface{}{"conversation_id": job.ConversationID}).Error("failed to queue fact extraction")
	}
}

func (s *MentorService) setLastConversationID(id string) {
	s.mu.Lock()
	s.lastConversationID = id
	s.mu.Unlock()
}

// LastConversationID returns the conversation used by the most recent request.
func (s *MentorService) LastConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastConversationID
}
