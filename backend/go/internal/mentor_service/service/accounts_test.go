package service

import (
	"context"
	"errors"
	"testing"

	"student_mentor/backend/go/internal/llm/llmtest"
	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   []string
}

func (s *stubSummarizer) SummarizeConversation(_ context.Context, id string) (string, error) {
	s.calls = append(s.calls, id)
	return s.summary, s.err
}

func TestSignUpAndLogin(t *testing.T) {
	svc := New(store.NewMemoryStore(), &llmtest.Fake{}, nil, Config{}, WithLogger(logger.Discard()))
	ctx := context.Background()

	id, err := svc.SignUp(ctx, SignupRequest{Name: " Ada ", Email: "Ada@Example.edu", Program: "CS"})
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, SignupRequest{Name: "Ada again", Email: "ada@example.edu"})
	assert.ErrorIs(t, err, store.ErrConflict)

	sess, err := svc.Login(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.Equal(t, id, sess.StudentID)
	assert.NotEmpty(t, sess.ConversationID)

	again, err := svc.Login(ctx, "ADA@example.edu")
	require.NoError(t, err)
	assert.Equal(t, sess, again)

	_, err = svc.Login(ctx, "nobody@example.edu")
	assert.ErrorIs(t, err, store.ErrNotFound)

	student, err := svc.Student(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", student.Name)
}

func TestHistory_HidesSystemMessages(t *testing.T) {
	f := newFixture(t, &llmtest.Fake{Chunks: []string{"Hi"}}, Config{})
	ctx := context.Background()

	s, err := f.svc.RespondToStudent(ctx, f.studentID, "Hello", "")
	require.NoError(t, err)
	drain(t, s)

	conv, err := f.svc.History(ctx, f.studentID)
	require.NoError(t, err)
	assert.Equal(t, s.ConversationID(), conv.ID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.RoleUser, conv.Messages[0].Role)

	_, err = f.svc.History(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFactsAndEvents(t *testing.T) {
	f := newFixture(t, &llmtest.Fake{}, Config{})
	ctx := context.Background()
	require.NoError(t, f.store.FactEvents.Append(ctx, &models.FactEvent{StudentID: f.studentID, Category: models.CategoryCareer, Key: "goal", Value: "SWE"}))
	require.NoError(t, f.store.Students.UpsertFact(ctx, f.studentID, models.CategoryCareer, "goal", models.FactEntry{Value: "SWE", Confidence: 1}))

	facts, err := f.svc.Facts(ctx, f.studentID)
	require.NoError(t, err)
	_, ok := facts.Career.Get("goal")
	assert.True(t, ok)

	events, err := f.svc.FactEvents(ctx, f.studentID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = f.svc.FactEvents(ctx, "nobody", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t, &llmtest.Fake{}, Config{})
	ctx := context.Background()
	conv, err := f.store.Conversations.GetOrCreateForStudent(ctx, f.studentID)
	require.NoError(t, err)

	_, err = f.svc.Summarize(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrSummariesDisabled)

	sum := &stubSummarizer{summary: "Talked about GPA."}
	svc := New(f.store, f.llm, nil, Config{}, WithLogger(logger.Discard()), WithSummarizer(sum))
	got, err := svc.Summarize(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Talked about GPA.", got)
	assert.Equal(t, []string{conv.ID}, sum.calls)

	_, err = svc.Summarize(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	sum.err = errors.New("model down")
	_, err = svc.Summarize(ctx, conv.ID)
	assert.ErrorIs(t, err, sum.err)
}

func TestUpdateProfileAndConversations(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st, &llmtest.Fake{}, nil, Config{}, WithLogger(logger.Discard()))
	ctx := context.Background()

	id, err := svc.SignUp(ctx, SignupRequest{Name: "Ada", Email: "ada@example.edu", Program: "CS"})
	require.NoError(t, err)

	name := "  Grace "
	updated, err := svc.UpdateProfile(ctx, id, models.StudentUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.Name)
	assert.Equal(t, "CS", updated.Program)

	blank := " "
	_, err = svc.UpdateProfile(ctx, id, models.StudentUpdate{Name: &blank})
	assert.ErrorIs(t, err, store.ErrValidation)

	sess, err := svc.Login(ctx, "ada@example.edu")
	require.NoError(t, err)
	convs, err := svc.Conversations(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, sess.ConversationID, convs[0].ID)
	assert.Empty(t, convs[0].Messages)

	stored, err := st.Conversations.Get(ctx, sess.ConversationID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Messages)

	_, err = svc.Conversations(ctx, "missing", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
