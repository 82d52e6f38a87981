package sentinel

import (
	"testing"

	"student_mentor/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_TextAndConversationID(t *testing.T) {
	text, id, ok := Collect([]string{"Hi", " there", "!", "<CONVERSATION_ID>abc123</CONVERSATION_ID>"})
	require.True(t, ok)
	assert.Equal(t, "Hi there!", text)
	assert.Equal(t, "abc123", id)
}

func TestCollect_ErrorMarkerMeansNoID(t *testing.T) {
	text, id, ok := Collect([]string{"Par", "tial", EncodeError(models.ErrKindModelInvocation)})
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, "Partial", text)
}

func TestParse(t *testing.T) {
	id, ok := Parse(Encode("c-1"))
	require.True(t, ok)
	assert.Equal(t, "c-1", id)

	for _, s := range []string{"", "hello", "<CONVERSATION_ID>x", "x</CONVERSATION_ID>", " <CONVERSATION_ID>x</CONVERSATION_ID>"} {
		_, ok := Parse(s)
		assert.False(t, ok, s)
	}

	kind, ok := ParseError("<STREAM_ERROR>persistence</STREAM_ERROR>")
	require.True(t, ok)
	assert.Equal(t, models.ErrKindPersistence, kind)
}

func TestToFragments(t *testing.T) {
	got := ToFragments([]models.StreamEvent{
		models.TextChunk("Hi"),
		models.TextChunk(""),
		models.TextChunk(" there"),
		models.StreamEnd("abc123"),
	})
	assert.Equal(t, []string{"Hi", " there", "<CONVERSATION_ID>abc123</CONVERSATION_ID>"}, got)

	got = ToFragments([]models.StreamEvent{models.StreamError(models.ErrKindModelInvocation, "boom")})
	assert.Equal(t, []string{"<STREAM_ERROR>model_invocation</STREAM_ERROR>"}, got)
}
