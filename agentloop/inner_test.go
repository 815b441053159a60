package agentloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
	"github.com/kodeflux/agentcore/toolkit"
)

type scriptedProvider struct {
	responses []*model.Response
	calls     int
	// block, if non-nil, is waited on before the first call returns -
	// lets tests observe state while a call is in flight.
	block chan struct{}
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []message.ChatMessage, tools []model.ToolDefinition, modelName string, temperature float64, maxTokens int) (*model.Response, error) {
	if p.block != nil && p.calls == 0 {
		<-p.block
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "search" }
func (echoTool) Description() string { return "Search." }
func (echoTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}}
}
func (echoTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return "3 results for " + args["query"].(string), nil
}

func strPtr(s string) *string { return &s }

func newTestLoop(provider model.Provider, registry *toolkit.Registry, maxIterations int) *Loop {
	l := &Loop{
		registry:      registry,
		provider:      provider,
		maxIterations: maxIterations,
		temperature:   0.5,
		maxTokens:     1024,
		consolidation: newConsolidationTracker(),
	}
	l.logger = noopTestLogger{}
	return l
}

type noopTestLogger struct{}

func (noopTestLogger) Debug(string, ...any) {}
func (noopTestLogger) Info(string, ...any)  {}
func (noopTestLogger) Warn(string, ...any)  {}
func (noopTestLogger) Error(string, ...any) {}

func TestRunAgentLoopStopsOnNonToolResponse(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		{Content: strPtr("the final answer")},
	}}
	l := newTestLoop(provider, toolkit.NewRegistry(), 5)

	result, err := l.runAgentLoop(context.Background(), []message.ChatMessage{message.NewUserText("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "the final answer", result.finalContent)
	assert.Empty(t, result.toolsUsed)
}

func TestRunAgentLoopExecutesToolCallsAndContinues(t *testing.T) {
	registry := toolkit.NewRegistry()
	registry.Register(echoTool{})

	provider := &scriptedProvider{responses: []*model.Response{
		{
			Content:      strPtr("let me check"),
			HasToolCalls: true,
			ToolCalls:    []model.ToolCall{{ID: "call_1", Name: "search", Arguments: `{"query":"go"}`}},
		},
		{Content: strPtr("done")},
	}}
	l := newTestLoop(provider, registry, 5)

	var progressMsgs []string
	onProgress := func(content string, toolHint bool) { progressMsgs = append(progressMsgs, content) }

	result, err := l.runAgentLoop(context.Background(), []message.ChatMessage{message.NewUserText("hi")}, onProgress)
	require.NoError(t, err)
	assert.Equal(t, "done", result.finalContent)
	assert.Equal(t, []string{"search"}, result.toolsUsed)
	assert.Contains(t, progressMsgs, "let me check")

	var toolMsg *message.ChatMessage
	for i := range result.messages {
		if result.messages[i].Role == message.RoleTool {
			toolMsg = &result.messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	s, ok := toolMsg.StringContent()
	require.True(t, ok)
	assert.Equal(t, "3 results for go", s)
}

func TestRunAgentLoopHitsIterationCap(t *testing.T) {
	registry := toolkit.NewRegistry()
	registry.Register(echoTool{})

	resp := &model.Response{
		HasToolCalls: true,
		ToolCalls:    []model.ToolCall{{ID: "call_1", Name: "search", Arguments: `{"query":"x"}`}},
	}
	provider := &scriptedProvider{responses: []*model.Response{resp, resp, resp}}
	l := newTestLoop(provider, registry, 3)

	result, err := l.runAgentLoop(context.Background(), []message.ChatMessage{message.NewUserText("hi")}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.finalContent, "maximum number of tool call iterations")
}

func TestStripThinkRemovesBlockAndTrims(t *testing.T) {
	out := stripThink("<thinking>internal musing</thinking>\n\nHello there")
	require.NotNil(t, out)
	assert.Equal(t, "Hello there", *out)
}

func TestStripThinkReturnsNilWhenEmptyAfterStrip(t *testing.T) {
	out := stripThink("<thinking>only thoughts</thinking>   ")
	assert.Nil(t, out)
}

func TestToolHintWithStringArg(t *testing.T) {
	hint := toolHint([]model.ToolCall{{Name: "search", Arguments: `{"query":"looking for a very long search string that exceeds forty characters"}`}})
	assert.Contains(t, hint, "search(")
	assert.Contains(t, hint, "…")
}

func TestToolHintWithoutStringArg(t *testing.T) {
	hint := toolHint([]model.ToolCall{{Name: "noop", Arguments: `{"count":5}`}})
	assert.Equal(t, "noop", hint)
}

func TestToolHintJoinsMultipleCalls(t *testing.T) {
	hint := toolHint([]model.ToolCall{
		{Name: "search", Arguments: `{"query":"go"}`},
		{Name: "noop", Arguments: `{}`},
	})
	assert.Equal(t, `search("go"), noop`, hint)
}
