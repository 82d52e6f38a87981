// Package assembler builds the model context for one mentor turn: the
// system prompt with profile and facts, a bounded history and the new input.
// Everything here is a pure function of its arguments.
package assembler

import (
	"student_mentor/backend/go/internal/models"
)

// Assembly is the context for a single model call.
type Assembly struct {
	SystemPrompt string
	History      []models.Message
	Input        string
}

// Assembler holds the history window.
type Assembler struct {
	Window WindowConfig
}

// New returns an Assembler with w, falling back to DefaultWindow when w is zero.
func New(w WindowConfig) *Assembler {
	if w == (WindowConfig{}) {
		w = DefaultWindow
	}
	return &Assembler{Window: w}
}

// Assemble expects messages to already end with the new user message.
func (a *Assembler) Assemble(student *models.Student, facts models.StudentFacts, messages []models.Message, input string) Assembly {
	return Assembly{
		SystemPrompt: BuildSystemPrompt(student, facts),
		History:      a.Window.Bound(messages),
		Input:        input,
	}
}

// Request converts the assembly into a model request. System messages of the
// history are folded into the system instruction. The trailing user message
// equal to Input is sent once, as the final turn.
func (a Assembly) Request(temperature float64) models.GenerateContentRequest {
	system := a.SystemPrompt
	history := a.History
	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser && history[n-1].Content == a.Input {
		history = history[:n-1]
	}

	contents := make([]models.Content, 0, len(history)+1)
	for _, m := range history {
		if m.Role == models.RoleSystem {
			system += "\n\n" + m.Content
			continue
		}
		contents = append(contents, models.NewTextContent(models.SpeakerFor(m.Role), m.Content))
	}
	contents = append(contents, models.NewTextContent(models.SpeakerUser, a.Input))

	req := models.GenerateContentRequest{SystemInstruction: system, Content: contents}
	req.WithTemperature(temperature)
	return req
}
