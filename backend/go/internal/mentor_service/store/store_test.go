package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"student_mentor/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { c.t = c.t.Add(time.Second); return c.t }

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	st := newMemoryStore((&clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}).now)
	year := 2
	id, err := st.Students.Create(context.Background(), &models.Student{
		Name: "Ada", Email: " Ada@Example.edu ", University: "MIT", Program: "CS", Year: &year,
	})
	require.NoError(t, err)
	return st, id
}

func TestStudents_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)

	s, err := st.Students.GetByEmail(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "ada@example.edu", s.Email)
	assert.Zero(t, s.Facts.Len())

	_, err = st.Students.Create(ctx, &models.Student{Name: "Other", Email: "ADA@example.edu"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = st.Students.Create(ctx, &models.Student{Email: "x@y.z"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = st.Students.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudents_UpdateKeepsID(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)

	prog := "Math"
	s, err := st.Students.Update(ctx, id, models.StudentUpdate{Program: &prog})
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "Math", s.Program)
	assert.Equal(t, "MIT", s.University)
}

func TestStudents_UpsertFactOverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)

	require.NoError(t, st.Students.UpsertFact(ctx, id, models.CategoryAcademic, "major", models.FactEntry{Value: "CS", Confidence: 0.9}))
	require.NoError(t, st.Students.UpsertFact(ctx, id, models.CategoryAcademic, "gpa", models.FactEntry{Value: 3.5, Confidence: 1}))
	require.NoError(t, st.Students.UpsertFact(ctx, id, models.CategoryAcademic, "major", models.FactEntry{Value: "Math", Confidence: 0.7}))

	facts, err := st.Students.Facts(ctx, id)
	require.NoError(t, err)
	require.Len(t, facts.Academic, 2)
	assert.Equal(t, "major", facts.Academic[0].Key)
	assert.Equal(t, "Math", facts.Academic[0].Entry.Value)
	assert.Equal(t, 0.7, facts.Academic[0].Entry.Confidence)

	err = st.Students.UpsertFact(ctx, id, "financial", "x", models.FactEntry{})
	assert.ErrorIs(t, err, ErrValidation)
	err = st.Students.UpsertFact(ctx, "missing", models.CategoryCareer, "x", models.FactEntry{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversations_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)

	c1, err := st.Conversations.GetOrCreateForStudent(ctx, id)
	require.NoError(t, err)
	c2, err := st.Conversations.GetOrCreateForStudent(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	require.Len(t, c2.Messages, 1)
	assert.Equal(t, models.RoleSystem, c2.Messages[0].Role)
	assert.Equal(t, models.SystemGreeting, c2.Messages[0].Content)
	assert.Equal(t, models.MentorTypePrimary, c2.MentorType)
}

func TestConversations_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)
	c, err := st.Conversations.GetOrCreateForStudent(ctx, id)
	require.NoError(t, err)

	t0 := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.Conversations.AppendMessage(ctx, c.ID, models.NewMessage(models.RoleUser, "hi", t0)))
	require.NoError(t, st.Conversations.AppendMessage(ctx, c.ID, models.NewMessage(models.RoleAssistant, "hello", t0.Add(time.Second))))

	msgs, err := st.Conversations.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{models.SystemGreeting, "hi", "hello"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

	got, err := st.Conversations.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Second)))

	msgs[1].Content = "mutated"
	again, _ := st.Conversations.Messages(ctx, c.ID)
	assert.Equal(t, "hi", again[1].Content)

	err = st.Conversations.AppendMessage(ctx, c.ID, models.Message{Role: "robot", Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	err = st.Conversations.AppendMessage(ctx, "missing", models.NewMessage(models.RoleUser, "x", t0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversations_SummaryAndRecent(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)
	c, _ := st.Conversations.GetOrCreateForStudent(ctx, id)

	at := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.Conversations.UpdateSummary(ctx, c.ID, "Talked about courses.", at))

	recent, err := st.Conversations.Recent(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Talked about courses.", recent[0].Summary)
	require.NotNil(t, recent[0].SummaryUpdatedAt)
	assert.True(t, recent[0].SummaryUpdatedAt.Equal(at))
}

func TestApplyExtraction_EventsAreRetainedWhileLiveValueIsOverwritten(t *testing.T) {
	ctx := context.Background()
	st, id := newTestStore(t)
	t1 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	_, err := ApplyExtraction(ctx, st, id, "c1", models.FactExtractionResult{ExtractedFacts: []models.ExtractedFact{
		{Category: "ACADEMIC", Key: "major", Value: "CS", Status: models.FactNew, Confidence: 1.4},
	}}, t1)
	require.NoError(t, err)
	applied, err := ApplyExtraction(ctx, st, id, "c1", models.FactExtractionResult{ExtractedFacts: []models.ExtractedFact{
		{Category: "academic", Key: "major", Value: "Math", Status: "updated", Confidence: 0.8},
	}}, t2)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, models.FactUpdated, applied[0].Status)

	facts, err := st.Students.Facts(ctx, id)
	require.NoError(t, err)
	major, ok := facts.Academic.Get("major")
	require.True(t, ok)
	assert.Equal(t, "Math", major.Value)
	assert.True(t, major.LastUpdated.Equal(t2))
	assert.Equal(t, 0.8, major.Confidence)

	events, err := st.FactEvents.ListByStudent(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Math", events[0].Value)
	assert.Equal(t, "CS", events[1].Value)
	assert.Equal(t, 1.0, events[1].Confidence, "confidence is clamped")
	assert.Equal(t, models.CategoryAcademic, events[1].Category)
}

func TestApplyExtraction_StopsOnUnknownStudent(t *testing.T) {
	st, _ := newTestStore(t)
	_, err := ApplyExtraction(context.Background(), st, "ghost", "", models.FactExtractionResult{ExtractedFacts: []models.ExtractedFact{
		{Category: models.CategoryCareer, Key: "goal", Value: "SWE", Confidence: 1},
	}}, time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"gpa":            "gpa",
		" favorite.lang": "favorite_lang",
		"$where":         "_where",
	}
	for in, want := range cases {
		got, err := SanitizeKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := SanitizeKey("   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-1))
	assert.Equal(t, 1.0, ClampConfidence(2))
	assert.Equal(t, 0.5, ClampConfidence(0.5))
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("socket closed")
	err := wrapErr("append message", cause)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "persistence: append message: socket closed", err.Error())
	assert.NoError(t, wrapErr("noop", nil))
}
