// Package intelligence mines student facts from finished exchanges and
// summarises conversations.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"student_mentor/backend/go/internal/llm"
	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
)

// DefaultTemperature is used for extraction and summaries unless overridden.
const DefaultTemperature = 0.2

// Extractor turns one user/assistant exchange into stored facts.
type Extractor struct {
	llm            llm.LLM
	store          store.Store
	temperature    float64
	contradictions ContradictionHandler
	publisher      FactEventPublisher
	logger         *logger.Logger
	now            func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithTemperature(t float64) Option {
	return func(e *Extractor) { e.temperature = t }
}

func WithContradictionHandler(h ContradictionHandler) Option {
	return func(e *Extractor) { e.contradictions = h }
}

// WithPublisher sends every stored fact event to p as well.
func WithPublisher(p FactEventPublisher) Option {
	return func(e *Extractor) { e.publisher = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// NewExtractor creates an Extractor. Contradictions are logged by default.
func NewExtractor(model llm.LLM, st store.Store, opts ...Option) *Extractor {
	e := &Extractor{
		llm:         model,
		store:       st,
		temperature: DefaultTemperature,
		publisher:   nopPublisher{},
		logger:      logger.New("intelligence", "", ""),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.contradictions == nil {
		e.contradictions = LogContradictions(e.logger)
	}
	return e
}

// ExtractFacts asks the model for facts in the exchange and merges them into
// the student's profile. Output the model cannot format correctly yields an
// empty result and a nil error. Model and persistence failures are returned.
func (e *Extractor) ExtractFacts(ctx context.Context, studentID, conversationID, userMessage, assistantMessage string) (models.FactExtractionResult, error) {
	log := e.logger.WithStudent(studentID)

	existing, err := e.store.Students.Facts(ctx, studentID)
	if err != nil {
		return models.FactExtractionResult{}, fmt.Errorf("load existing facts: %w", err)
	}
	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return models.FactExtractionResult{}, fmt.Errorf("marshal existing facts: %w", err)
	}

	prompt := fmt.Sprintf(extractionPrompt, userMessage, assistantMessage, string(existingJSON))
	req := &models.GenerateContentRequest{
		Content: []models.Content{models.NewTextContent(models.SpeakerUser, prompt)},
	}
	req.WithTemperature(e.temperature)

	var out factOutput
	if err := llm.GenerateStructured(ctx, e.llm, req, &out); err != nil {
		if llm.IsParseError(err) {
			log.WithErr(err).Warn("extraction output could not be parsed, skipping")
			return models.FactExtractionResult{}, nil
		}
		return models.FactExtractionResult{}, err
	}

	result := e.normalize(log, out.toResult())
	if len(result.Contradictions) > 0 {
		e.contradictions(ctx, studentID, result.Contradictions)
	}
	if len(result.ExtractedFacts) == 0 {
		return result, nil
	}

	events, err := store.ApplyExtraction(ctx, e.store, studentID, conversationID, result, e.now())
	for _, ev := range events {
		if perr := e.publisher.PublishFactEvent(ctx, ev); perr != nil {
			log.WithErr(perr).Warn("failed to publish fact event")
		}
	}
	if err != nil {
		return result, fmt.Errorf("apply extraction: %w", err)
	}

	log.WithPayload(map[string]interface{}{
		"facts":           len(events),
		"conversation_id": conversationID,
	}).Info("stored extracted facts")
	return result, nil
}

// normalize drops facts that cannot be stored and canonicalises the rest.
func (e *Extractor) normalize(log *logger.Logger, res models.FactExtractionResult) models.FactExtractionResult {
	kept := res.ExtractedFacts[:0:0]
	for _, f := range res.ExtractedFacts {
		category, err := models.ParseFactCategory(string(f.Category))
		if err != nil {
			log.WithErr(err).WithPayload(map[string]interface{}{"key": f.Key}).Warn("dropping extracted fact")
			continue
		}
		key, err := store.SanitizeKey(f.Key)
		if err != nil {
			log.WithErr(err).WithPayload(map[string]interface{}{"category": category}).Warn("dropping extracted fact")
			continue
		}
		kept = append(kept, models.ExtractedFact{
			Category:   category,
			Key:        key,
			Value:      f.Value,
			Status:     models.ParseFactStatus(string(f.Status)),
			Confidence: store.ClampConfidence(f.Confidence),
		})
	}
	res.ExtractedFacts = kept
	return res
}

// SummarizeConversation writes a short summary of the conversation and
// stores it on the conversation document.
func (e *Extractor) SummarizeConversation(ctx context.Context, conversationID string) (string, error) {
	msgs, err := e.store.Conversations.Messages(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("load conversation: %w", err)
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			continue
		case models.RoleUser:
			lines = append(lines, "Student: "+m.Content)
		default:
			lines = append(lines, "Mentor: "+m.Content)
		}
	}

	req := &models.GenerateContentRequest{
		Content: []models.Content{models.NewTextContent(models.SpeakerUser, fmt.Sprintf(summaryPrompt, strings.Join(lines, "\n")))},
	}
	req.WithTemperature(e.temperature)
	resp, err := e.llm.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Text())
	if err := e.store.Conversations.UpdateSummary(ctx, conversationID, summary, e.now()); err != nil {
		return "", fmt.Errorf("store summary: %w", err)
	}
	return summary, nil
}
