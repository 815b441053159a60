package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringContent(t *testing.T) {
	m := NewUserText("hello")
	s, ok := m.StringContent()
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = NewUserParts([]ContentPart{TextContentPart("hi")}).StringContent()
	assert.False(t, ok)
}

func TestPartsContentRoundTripsThroughJSON(t *testing.T) {
	original := NewUserParts([]ContentPart{
		ImageContentPart("data:image/png;base64,Zm9v"),
		TextContentPart("what is this?"),
	})

	line, err := EncodeLine(original)
	assert.NoError(t, err)

	decoded, err := DecodeLine(line)
	assert.NoError(t, err)

	parts, ok := decoded.PartsContent()
	assert.True(t, ok)
	assert.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[0].Type)
	assert.Equal(t, "data:image/png;base64,Zm9v", parts[0].ImageURL.URL)
	assert.Equal(t, "text", parts[1].Type)
	assert.Equal(t, "what is this?", parts[1].Text)
}

func TestTextOnly(t *testing.T) {
	assert.Equal(t, "hello", NewUserText("hello").TextOnly())
	assert.Equal(t, "what is this?", NewUserParts([]ContentPart{
		ImageContentPart("data:image/png;base64,Zm9v"),
		TextContentPart("what is this?"),
	}).TextOnly())
	assert.Equal(t, "", ChatMessage{Role: RoleAssistant}.TextOnly())
}

func TestSanitizeDropsBookkeepingFields(t *testing.T) {
	reasoning := "internal scratch"
	m := ChatMessage{
		Role:             RoleAssistant,
		Content:          "done",
		ReasoningContent: &reasoning,
		ToolsUsed:        []string{"read_file"},
		Timestamp:        "2026-01-01T00:00",
	}

	clean := m.Sanitize()
	assert.Equal(t, "done", clean.Content)
	assert.Equal(t, "", clean.Timestamp)
	assert.Nil(t, clean.ToolsUsed)
	assert.Nil(t, clean.ReasoningContent)
}

func TestNewAssistantAlwaysSetsContentKey(t *testing.T) {
	m := NewAssistant(nil, []ToolCallRecord{{ID: "tc1", Type: "function", Function: FunctionCall{Name: "read_file", Arguments: `{"path":"README"}`}}}, nil)
	line, err := EncodeLine(m)
	assert.NoError(t, err)
	assert.Contains(t, string(line), `"content":null`)
}
