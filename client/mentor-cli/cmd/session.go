package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// session is what login stores between invocations.
type session struct {
	StudentID      string `json:"student_id"`
	ConversationID string `json:"conversation_id"`
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".mentor-cli.json"
	}
	return filepath.Join(dir, "mentor-cli", "session.json")
}

func saveSession(path string, s session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func loadSession(path string) (session, error) {
	var s session
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("not logged in, run `mentor-cli login` first")
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	if s.StudentID == "" {
		return s, fmt.Errorf("session file %s has no student id, log in again", path)
	}
	return s, nil
}
