package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"student_mentor/backend/go/pkg/sse"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var showFacts bool
	c := &cobra.Command{
		Use:   "chat",
		Short: "Chat with your mentor (type /quit to leave)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(sessionPath)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), &s, showFacts)
		},
	}
	c.Flags().BoolVar(&showFacts, "show-facts", false, "print what the mentor knows about you after each reply")
	return c
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, s *session, showFacts bool) error {
	client := newClient()
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Chatting with your mentor. Type /quit to leave.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		body := map[string]string{"message": line, "conversation_id": s.ConversationID}
		resp, err := client.Stream(ctx, "/api/v1/students/"+s.StudentID+"/messages", body, "text/event-stream")
		if err != nil {
			fmt.Fprintf(out, "[request failed: %v]\n", err)
			continue
		}
		convID, err := readReply(resp.Body, out)
		resp.Body.Close()
		if err != nil {
			fmt.Fprintf(out, "\n[%v]\n", err)
			continue
		}
		if convID != "" && convID != s.ConversationID {
			s.ConversationID = convID
			if err := saveSession(sessionPath, *s); err != nil {
				fmt.Fprintf(out, "[could not save session: %v]\n", err)
			}
		}

		if showFacts {
			if err := printFacts(ctx, out, s.StudentID); err != nil {
				fmt.Fprintf(out, "[could not load facts: %v]\n", err)
			}
		}
	}
}

// replyError is an error event sent by the server after the stream started.
type replyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *replyError) Error() string {
	return fmt.Sprintf("mentor failed (%s): %s", e.Kind, e.Message)
}

// readReply prints chunk events as they arrive and returns the conversation
// id carried by the end event.
func readReply(body io.Reader, out io.Writer) (string, error) {
	r := sse.NewReader(body)
	for {
		ev, err := r.Next()
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		if ev == nil {
			return "", fmt.Errorf("stream ended without a result")
		}
		switch ev.Type {
		case "chunk":
			var chunk struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				return "", fmt.Errorf("bad chunk: %w", err)
			}
			fmt.Fprint(out, chunk.Text)
		case "end":
			var end struct {
				ConversationID string `json:"conversation_id"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &end); err != nil {
				return "", fmt.Errorf("bad end event: %w", err)
			}
			fmt.Fprintln(out)
			return end.ConversationID, nil
		case "error":
			e := &replyError{}
			if err := json.Unmarshal([]byte(ev.Data), e); err != nil {
				return "", fmt.Errorf("bad error event: %w", err)
			}
			return "", e
		}
	}
}
