package agentloop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeflux/agentcore/assembler"
	"github.com/kodeflux/agentcore/bus"
	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
	"github.com/kodeflux/agentcore/session"
	"github.com/kodeflux/agentcore/toolkit"
)

func newTestSystem(t *testing.T, provider model.Provider) (*Loop, session.Store, *bus.Bus) {
	dir := t.TempDir()

	sessions, err := session.NewFileStore(filepath.Join(dir, "sessions"))
	require.NoError(t, err)

	memStore, err := memory.NewStore(filepath.Join(dir, "memory"))
	require.NoError(t, err)

	asm, err := assembler.New(memStore, func(o *assembler.Options) {
		o.Workspace = dir
		o.AgentName = "Test"
	})
	require.NoError(t, err)

	registry := toolkit.NewRegistry()
	registry.Register(toolkit.NewMessageTool())

	b := bus.New()

	l := New(b, sessions, memStore, asm, registry, provider, func(o *Options) {
		o.MemoryWindow = 6
		o.MaxIterations = 5
	})

	return l, sessions, b
}

func TestProcessMessageHelpCommand(t *testing.T) {
	l, _, _ := newTestSystem(t, &scriptedProvider{})

	out, err := l.processMessage(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "/help"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Contains(t, out.Content, "/new")
	assert.Contains(t, out.Content, "/help")
}

func TestProcessMessageNewCommandClearsSession(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{HasToolCalls: true, ToolCalls: []model.ToolCall{{ID: "c1", Name: "save_memory", Arguments: `{"history_entry":"[2026-08-06 09:00] did stuff","memory_update":"facts"}`}}},
	}}
	l, sessions, _ := newTestSystem(t, provider)

	sess, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	sess.Messages = []message.ChatMessage{message.NewUserText("hello"), message.NewAssistant("hi", nil, nil)}
	require.NoError(t, sessions.Save(sess))

	out, err := l.processMessage(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "/new"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "New session started.", out.Content)

	after, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	assert.Empty(t, after.Messages)
	assert.Equal(t, 0, after.LastConsolidated)
}

func TestProcessMessageNewCommandReportsFailureWithoutClearing(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{Content: strPtr("no tool call here")},
	}}
	l, sessions, _ := newTestSystem(t, provider)

	sess, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	sess.Messages = []message.ChatMessage{message.NewUserText("hello")}
	require.NoError(t, sessions.Save(sess))

	out, err := l.processMessage(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "/new"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Contains(t, out.Content, "Memory archival failed")

	after, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	assert.NotEmpty(t, after.Messages)
}

func TestProcessMessagePlainTurnReturnsFinalContent(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{Content: strPtr("Hello, how can I help?")},
	}}
	l, sessions, _ := newTestSystem(t, provider)

	out, err := l.processMessage(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "hi there"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Hello, how can I help?", out.Content)

	sess, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, message.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, message.RoleAssistant, sess.Messages[1].Role)
}

func TestProcessMessageSuppressesReplyWhenMessageToolUsed(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{
			HasToolCalls: true,
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: toolkit.MessageToolName, Arguments: `{"content":"sent early"}`}},
		},
		{Content: strPtr("final wrap-up, already delivered")},
	}}
	l, _, b := newTestSystem(t, provider)

	out, err := l.processMessage(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "hi"})
	require.NoError(t, err)
	assert.Nil(t, out)

	hint, ok := b.ConsumeOutbound(context.Background(), 200*time.Millisecond)
	require.True(t, ok)
	assert.True(t, hint.IsToolHint())
	assert.Equal(t, `message("sent early")`, hint.Content)

	published, ok := b.ConsumeOutbound(context.Background(), 200*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "sent early", published.Content)
}

func TestHandleInboundPublishesEmptyOutboundForCLIOnSuppressedReply(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{
			HasToolCalls: true,
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: toolkit.MessageToolName, Arguments: `{"content":"hey"}`}},
		},
		{Content: strPtr("done")},
	}}
	l, _, b := newTestSystem(t, provider)

	l.handleInbound(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "hi"})

	hint, ok := b.ConsumeOutbound(context.Background(), 200*time.Millisecond)
	require.True(t, ok)
	assert.True(t, hint.IsToolHint())
	assert.Equal(t, `message("hey")`, hint.Content)

	first, ok := b.ConsumeOutbound(context.Background(), 200*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "hey", first.Content)

	second, ok := b.ConsumeOutbound(context.Background(), 200*time.Millisecond)
	require.True(t, ok)
	assert.Empty(t, second.Content)
}

func TestMaybeTriggerConsolidationStartsOnlyOnce(t *testing.T) {
	block := make(chan struct{})
	provider := &scriptedProvider{block: block, responses: []*model.Response{
		{HasToolCalls: true, ToolCalls: []model.ToolCall{{ID: "c1", Name: "save_memory", Arguments: `{"history_entry":"[2026-08-06 09:00] stuff happened","memory_update":"facts"}`}}},
	}}
	l, sessions, _ := newTestSystem(t, provider)

	sess, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		sess.Messages = append(sess.Messages, message.NewUserText("msg"))
	}
	require.NoError(t, sessions.Save(sess))

	live, err := sessions.GetOrCreate("cli:1")
	require.NoError(t, err)

	l.maybeTriggerConsolidation(live)

	started := l.consolidation.tryStart(live.Key)
	assert.False(t, started, "expected consolidation already in flight for this key")

	close(block)
	l.consolidation.wg.Wait()
}
