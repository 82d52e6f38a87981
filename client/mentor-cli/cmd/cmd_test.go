package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMentor serves the handful of routes the CLI uses.
func fakeMentor(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != "ada@example.edu" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"student not found"}`)
			return
		}
		fmt.Fprint(w, `{"student_id":"s1","conversation_id":"c1"}`)
	})
	mux.HandleFunc("/api/v1/students/s1/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		if body["message"] == "break" {
			fmt.Fprint(w, "event:error\ndata:{\"kind\":\"model_invocation\",\"message\":\"model down\"}\n\n")
			return
		}
		fmt.Fprint(w, "event:chunk\ndata:{\"text\":\"Hello\"}\n\n")
		fmt.Fprint(w, "event:chunk\ndata:{\"text\":\" Ada\"}\n\n")
		fmt.Fprint(w, "event:end\ndata:{\"conversation_id\":\"c2\"}\n\n")
	})
	mux.HandleFunc("/api/v1/students/s1/facts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"academic":{"gpa":{"value":3.8,"confidence":0.9}},"career":{},"personal":null}`)
	})
	mux.HandleFunc("/api/v1/conversations/c1/summary", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"summary":"Talked about GPA."}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, session, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--server", srv.URL, "--session", session}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginThenChat(t *testing.T) {
	srv := fakeMentor(t)
	path := filepath.Join(t.TempDir(), "session.json")

	out, err := run(t, srv, path, "", "login", "--email", "ada@example.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as s1")

	out, err = run(t, srv, path, "hi\nbreak\n/quit\n", "chat", "--show-facts")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello Ada\n")
	assert.Contains(t, out, "gpa: 3.8 (confidence 0.90)")
	assert.Contains(t, out, "mentor failed (model_invocation): model down")

	s, err := loadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "c2", s.ConversationID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	srv := fakeMentor(t)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "s.json"), "", "login", "--email", "bob@example.edu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student not found")
}

func TestChat_RequiresLogin(t *testing.T) {
	srv := fakeMentor(t)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "missing.json"), "", "chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestFactsAndSummary(t *testing.T) {
	srv := fakeMentor(t)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, saveSession(path, session{StudentID: "s1", ConversationID: "c1"}))

	out, err := run(t, srv, path, "", "facts")
	require.NoError(t, err)
	assert.Equal(t, "Academic:\n  gpa: 3.8 (confidence 0.90)\nCareer:\n  (nothing yet)\nPersonal:\n  (nothing yet)\n", out)

	out, err = run(t, srv, path, "", "summary")
	require.NoError(t, err)
	assert.Equal(t, "Talked about GPA.\n", out)
}

func TestReadReply_EndsWithoutResult(t *testing.T) {
	var out bytes.Buffer
	_, err := readReply(strings.NewReader("event:chunk\ndata:{\"text\":\"partial\"}\n\n"), &out)
	require.Error(t, err)
	assert.Equal(t, "partial", out.String())
}
