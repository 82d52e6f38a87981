// Package llmtest provides a scripted LLM for tests.
package llmtest

import (
	"context"
	"sync"

	"student_mentor/backend/go/internal/llm"
	"student_mentor/backend/go/internal/models"
)

// Fake is a scripted llm.LLM. The zero value streams nothing and replies "".
type Fake struct {
	// Chunks are streamed in order, followed by a final Done response.
	Chunks []string
	// StreamErr, if set, is sent after Chunks instead of the Done response.
	StreamErr error
	// StartErr makes GenerateContentStream fail before streaming.
	StartErr error
	// Gate, if set, is received from before each chunk is sent.
	Gate chan struct{}

	// Replies are returned by GenerateContent in order; the last one repeats.
	Replies     []string
	GenerateErr error

	mu       sync.Mutex
	requests []models.GenerateContentRequest
	calls    int
}

var _ llm.LLM = (*Fake)(nil)

func (f *Fake) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	n := f.calls
	f.calls++
	f.mu.Unlock()

	if f.GenerateErr != nil {
		return nil, f.GenerateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var text string
	if len(f.Replies) > 0 {
		if n >= len(f.Replies) {
			n = len(f.Replies) - 1
		}
		text = f.Replies[n]
	}
	return response(text, true), nil
}

func (f *Fake) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan llm.StreamResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()

	if f.StartErr != nil {
		return nil, f.StartErr
	}

	ch := make(chan llm.StreamResult)
	go func() {
		defer close(ch)
		send := func(r llm.StreamResult) bool {
			select {
			case ch <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, c := range f.Chunks {
			if f.Gate != nil {
				select {
				case <-f.Gate:
				case <-ctx.Done():
					send(llm.StreamResult{Err: ctx.Err()})
					return
				}
			}
			if !send(llm.StreamResult{Response: response(c, false)}) {
				return
			}
		}
		if f.StreamErr != nil {
			send(llm.StreamResult{Err: f.StreamErr})
			return
		}
		send(llm.StreamResult{Response: response("", true)})
	}()
	return ch, nil
}

// Requests returns copies of every request received so far.
func (f *Fake) Requests() []models.GenerateContentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GenerateContentRequest(nil), f.requests...)
}

func response(text string, done bool) *models.GenerateContentResponse {
	return &models.GenerateContentResponse{
		Content: []models.Content{models.NewTextContent(models.SpeakerModel, text)},
		Done:    done,
	}
}
