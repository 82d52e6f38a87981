package assembler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"student_mentor/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation(nonSystem int) []models.Message {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := []models.Message{models.NewMessage(models.RoleSystem, models.SystemGreeting, t0)}
	for i := 1; i <= nonSystem; i++ {
		role := models.RoleUser
		if i%2 == 0 {
			role = models.RoleAssistant
		}
		msgs = append(msgs, models.NewMessage(role, fmt.Sprintf("m%d", i), t0.Add(time.Duration(i)*time.Minute)))
	}
	return msgs
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestBoundHistory_BelowThresholdPassesThrough(t *testing.T) {
	for _, n := range []int{0, 1, 10, 28} {
		msgs := conversation(n)
		got := BoundHistory(msgs)
		assert.Equal(t, msgs, got, "n=%d", n)
	}
}

func TestBoundHistory_ThirtyFiveMessages(t *testing.T) {
	msgs := conversation(34)
	require.Len(t, msgs, 35)

	got := BoundHistory(msgs)
	require.Len(t, got, 24)
	assert.Equal(t, models.RoleSystem, got[0].Role)

	want := []string{models.SystemGreeting, "m1", "m2", "m3"}
	for i := 15; i <= 34; i++ {
		want = append(want, fmt.Sprintf("m%d", i))
	}
	assert.Equal(t, want, contents(got))
}

func TestBoundHistory_ExactlyThresholdTrims(t *testing.T) {
	got := BoundHistory(conversation(29))
	assert.Len(t, got, 24)
}

func TestBoundHistory_OverlappingWindowsEmitOnce(t *testing.T) {
	t0 := time.Now()
	var msgs []models.Message
	for i := 0; i < 12; i++ {
		msgs = append(msgs, models.NewMessage(models.RoleSystem, fmt.Sprintf("s%d", i), t0))
	}
	for i := 1; i <= 18; i++ {
		msgs = append(msgs, models.NewMessage(models.RoleUser, fmt.Sprintf("m%d", i), t0))
	}
	require.Len(t, msgs, 30)

	got := BoundHistory(msgs)
	assert.Len(t, got, 30)
	seen := map[string]bool{}
	for _, m := range got {
		assert.False(t, seen[m.Content], "duplicate %s", m.Content)
		seen[m.Content] = true
	}
	assert.Equal(t, "m1", got[12].Content)
	assert.Equal(t, "m18", got[29].Content)
}

func TestBoundHistory_DoesNotMutateInput(t *testing.T) {
	msgs := conversation(40)
	before := append([]models.Message(nil), msgs...)

	got := BoundHistory(msgs)
	got[0].Content = "changed"
	_ = append(got[:1], models.Message{Content: "x"})

	assert.Equal(t, before, msgs)
}

func TestBoundHistory_KeepsEverySystemMessage(t *testing.T) {
	msgs := conversation(40)
	msgs = append(msgs[:20:20], append([]models.Message{models.NewMessage(models.RoleSystem, "note", time.Now())}, msgs[20:]...)...)

	got := BoundHistory(msgs)
	require.Len(t, got, 25)
	assert.Equal(t, "note", got[1].Content)
}

func TestWindowConfig_Custom(t *testing.T) {
	w := WindowConfig{TrimThreshold: 5, HeadKeep: 1, TailKeep: 2}
	got := w.Bound(conversation(6))
	assert.Equal(t, []string{models.SystemGreeting, "m1", "m5", "m6"}, contents(got))
}

func TestFormatFacts_Scenario(t *testing.T) {
	var b models.FactBucket
	b = b.Set("gpa", models.FactEntry{Value: 3.8, LastUpdated: time.Now(), Confidence: 1})
	assert.Equal(t, "- Gpa: 3.8", FormatFacts(b))
}

func TestFormatFacts_KeysAndValues(t *testing.T) {
	var b models.FactBucket
	b = b.Set("favorite_course", models.FactEntry{Value: "Algorithms"})
	b = b.Set("credits", models.FactEntry{Value: float64(120)})
	b = b.Set("raw", models.FactEntry{Value: map[string]interface{}{"value": "unwrapped", "confidence": 0.3}})
	b = b.Set("langs", models.FactEntry{Value: []interface{}{"Go", "Python"}})
	b = b.Set("year2_goal", models.FactEntry{Value: "intern"})

	want := strings.Join([]string{
		"- Favorite Course: Algorithms",
		"- Credits: 120",
		"- Raw: unwrapped",
		"- Langs: Go, Python",
		"- Year2 Goal: intern",
	}, "\n")
	assert.Equal(t, want, FormatFacts(b))
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "Gpa", TitleKey("gpa"))
	assert.Equal(t, "Favorite Course", TitleKey("favorite_course"))
	assert.Equal(t, "Gpa", TitleKey("GPA"))
	assert.Equal(t, "2Nd Major", TitleKey("2nd_major"))
}

func TestFormatDigest_SkipsEmptyBuckets(t *testing.T) {
	var f models.StudentFacts
	assert.Empty(t, FormatDigest(f))

	f = f.With(models.CategoryPersonal, "sleep", models.FactEntry{Value: "poor"})
	f = f.With(models.CategoryAcademic, "major", models.FactEntry{Value: "CS"})
	assert.Equal(t, "ACADEMIC FACTS:\n- Major: CS\n\nPERSONAL FACTS:\n- Sleep: poor", FormatDigest(f))
}

func TestFormatDigest_IsPure(t *testing.T) {
	var f models.StudentFacts
	f = f.With(models.CategoryCareer, "goal", models.FactEntry{Value: "SWE"})
	first := FormatDigest(f)
	assert.Equal(t, first, FormatDigest(f))
	assert.Len(t, f.Career, 1)
}

func TestBuildSystemPrompt(t *testing.T) {
	year := 3
	s := &models.Student{Name: "Ada", University: "MIT", Year: &year}
	var f models.StudentFacts
	f = f.With(models.CategoryAcademic, "gpa", models.FactEntry{Value: 3.8})

	p := BuildSystemPrompt(s, f)
	assert.True(t, strings.HasPrefix(p, MentorPrompt))
	assert.Contains(t, p, "STUDENT PROFILE:\nName: Ada\nUniversity: MIT\nProgram: Unknown\nYear: 3")
	assert.True(t, strings.HasSuffix(p, "ACADEMIC FACTS:\n- Gpa: 3.8"))

	p = BuildSystemPrompt(nil, models.StudentFacts{})
	assert.Contains(t, p, "Name: Unknown")
	assert.NotContains(t, p, "FACTS:")
}

func TestAssemble_InputIsLastHistoryMessage(t *testing.T) {
	msgs := append(conversation(3), models.NewMessage(models.RoleUser, "How do I study?", time.Now()))
	a := New(WindowConfig{}).Assemble(&models.Student{Name: "Ada"}, models.StudentFacts{}, msgs, "How do I study?")

	require.Len(t, a.History, 5)
	assert.Equal(t, "How do I study?", a.History[4].Content)
	assert.Equal(t, "How do I study?", a.Input)
	assert.Contains(t, a.SystemPrompt, "Name: Ada")
}

func TestAssembly_Request(t *testing.T) {
	msgs := append(conversation(2), models.NewMessage(models.RoleUser, "next?", time.Now()))
	a := New(DefaultWindow).Assemble(nil, models.StudentFacts{}, msgs, "next?")

	req := a.Request(0.7)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)
	assert.Contains(t, req.SystemInstruction, models.SystemGreeting)

	require.Len(t, req.Content, 3)
	assert.Equal(t, models.SpeakerUser, req.Content[0].Role)
	assert.Equal(t, models.SpeakerAssistant, req.Content[1].Role)
	assert.Equal(t, "next?", req.Content[2].Text())
	assert.Equal(t, models.SpeakerUser, req.Content[2].Role)
}
