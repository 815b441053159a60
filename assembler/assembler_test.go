package assembler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 6, 9, 30, 0, 0, time.UTC)
}

func newTestAssembler(t *testing.T, workspace string) *Assembler {
	memStore, err := memory.NewStore(filepath.Join(workspace, "memory"))
	require.NoError(t, err)

	a, err := New(memStore, func(o *Options) {
		o.AgentName = "TestAgent"
		o.Workspace = workspace
		o.Now = fixedNow
	})
	require.NoError(t, err)
	return a
}

func TestBuildSystemPromptIncludesIdentity(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	prompt, err := a.BuildSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, prompt, "TestAgent")
	assert.Contains(t, prompt, "memory/MEMORY.md")
}

func TestBuildSystemPromptIncludesBootstrapFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SOUL.md"), []byte("Be kind."), 0o644))
	a := newTestAssembler(t, dir)

	prompt, err := a.BuildSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, prompt, "## SOUL.md")
	assert.Contains(t, prompt, "Be kind.")
}

func TestBuildSystemPromptOmitsMissingSections(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	prompt, err := a.BuildSystemPrompt()
	require.NoError(t, err)
	assert.NotContains(t, prompt, "# Memory")
	assert.NotContains(t, prompt, "# Active Skills")
	assert.NotContains(t, prompt, "# Skills Catalog")
}

func TestBuildSystemPromptIncludesMemoryWhenPresent(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory", "MEMORY.md"), []byte("User likes tea."), 0o644))

	prompt, err := a.BuildSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, prompt, "# Memory")
	assert.Contains(t, prompt, "User likes tea.")
}

func TestBuildSystemPromptSkillsCatalogAndActiveSkills(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "skills", "weather")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"),
		[]byte("---\nname: weather\ndescription: Check weather.\nalways: true\n---\nCall the weather API.\n"), 0o644))

	otherDir := filepath.Join(dir, "skills", "unavailable")
	require.NoError(t, os.MkdirAll(otherDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(otherDir, "SKILL.md"),
		[]byte("---\nname: unavailable\ndescription: Needs a tool.\nrequires:\n  - bin:definitely-not-installed-xyz\n---\nbody\n"), 0o644))

	a := newTestAssembler(t, dir)
	prompt, err := a.BuildSystemPrompt()
	require.NoError(t, err)

	assert.Contains(t, prompt, "# Active Skills")
	assert.Contains(t, prompt, "Call the weather API.")
	assert.Contains(t, prompt, "# Skills Catalog")
	assert.Contains(t, prompt, "<name>weather</name>")
	assert.Contains(t, prompt, `available="false"`)
}

func TestBuildUserContentPlainString(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	content := a.BuildUserContent("hello", nil)
	assert.Equal(t, "hello", content)
}

func TestBuildUserContentWithImageMedia(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	imgPath := filepath.Join(dir, "pic.png")
	pngHeader := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(imgPath, pngHeader, 0o644))

	content := a.BuildUserContent("what is this", []string{imgPath})
	parts, ok := content.([]message.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[0].Type)
	assert.Contains(t, parts[0].ImageURL.URL, "data:image/png;base64,")
	assert.Equal(t, "text", parts[1].Type)
	assert.Equal(t, "what is this", parts[1].Text)
}

func TestBuildUserContentSkipsUnreadableMedia(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	content := a.BuildUserContent("hello", []string{filepath.Join(dir, "missing.png")})
	assert.Equal(t, "hello", content)
}

func TestBuildMessagesOrdersSystemHistoryUser(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	history := []message.ChatMessage{
		message.NewUserText("earlier question"),
		message.NewAssistant("earlier answer", nil, nil),
	}

	msgs, err := a.BuildMessages(history, "what now", nil, "cli", "chat-1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, message.RoleSystem, msgs[0].Role)
	assert.Equal(t, message.RoleUser, msgs[1].Role)
	assert.Equal(t, message.RoleAssistant, msgs[2].Role)
	assert.Equal(t, message.RoleUser, msgs[3].Role)

	userContent, ok := msgs[3].StringContent()
	require.True(t, ok)
	assert.Contains(t, userContent, "what now")
	assert.Contains(t, userContent, "[Runtime Context]")
	assert.Contains(t, userContent, "Channel: cli")
	assert.Contains(t, userContent, "Chat ID: chat-1")
	assert.Contains(t, userContent, "2026-08-06 09:30")
}

func TestBuildMessagesInjectsRuntimeContextIntoMixedContent(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t, dir)

	imgPath := filepath.Join(dir, "pic.png")
	pngHeader := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(imgPath, pngHeader, 0o644))

	msgs, err := a.BuildMessages(nil, "look at this", []string{imgPath}, "cli", "chat-1")
	require.NoError(t, err)

	userMsg := msgs[len(msgs)-1]
	parts, ok := userMsg.PartsContent()
	require.True(t, ok)
	last := parts[len(parts)-1]
	assert.Equal(t, "text", last.Type)
	assert.Contains(t, last.Text, "[Runtime Context]")
}

func TestAddAssistantMessageConvertsToolCalls(t *testing.T) {
	history := []message.ChatMessage{message.NewUserText("hi")}
	content := "let me check"

	out := AddAssistantMessage(history, &content, []model.ToolCall{
		{ID: "call_1", Name: "search", Arguments: `{"q":"go"}`},
	}, nil)

	require.Len(t, out, 2)
	assistant := out[1]
	assert.Equal(t, message.RoleAssistant, assistant.Role)
	s, ok := assistant.StringContent()
	require.True(t, ok)
	assert.Equal(t, "let me check", s)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "search", assistant.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"q":"go"}`, assistant.ToolCalls[0].Function.Arguments)
}

func TestAddAssistantMessageNilContentStillSetsKey(t *testing.T) {
	out := AddAssistantMessage(nil, nil, []model.ToolCall{{ID: "c1", Name: "x", Arguments: "{}"}}, nil)
	require.Len(t, out, 1)

	line, err := message.EncodeLine(out[0])
	require.NoError(t, err)
	assert.Contains(t, string(line), `"content":null`)
}

func TestAddToolResultAppendsToolMessage(t *testing.T) {
	out := AddToolResult(nil, "call_1", "search", "3 results found")
	require.Len(t, out, 1)
	assert.Equal(t, message.RoleTool, out[0].Role)
	assert.Equal(t, "call_1", out[0].ToolCallID)
	assert.Equal(t, "search", out[0].Name)
	s, ok := out[0].StringContent()
	require.True(t, ok)
	assert.Equal(t, "3 results found", s)
}
