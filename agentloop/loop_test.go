package agentloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeflux/agentcore/bus"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
)

func TestRunProcessesInboundAndPublishesOutbound(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{{Content: strPtr("hi back")}}}
	l, _, b := newTestSystem(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	b.PublishInbound(bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "hello"})

	out, ok := b.ConsumeOutbound(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "hi back", out.Content)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}

func TestRunPublishesApologyOnProcessingError(t *testing.T) {
	provider := &erroringProvider{}
	l, _, b := newTestSystem(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Run(ctx)

	b.PublishInbound(bus.InboundMessage{Channel: "cli", ChatID: "1", Content: "hello"})

	out, ok := b.ConsumeOutbound(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Contains(t, out.Content, "Sorry, I encountered an error")
}

type erroringProvider struct{}

func (erroringProvider) Chat(ctx context.Context, messages []message.ChatMessage, tools []model.ToolDefinition, modelName string, temperature float64, maxTokens int) (*model.Response, error) {
	return nil, assert.AnError
}
