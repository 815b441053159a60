// Package agentloop implements the engine: the outer loop that drains the
// bus and dispatches turns, the per-message processing pipeline (slash
// commands, background consolidation scheduling, context assembly), the
// inner reason-act iteration against a model provider and tool registry, and
// turn persistence back to the session store.
package agentloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kodeflux/agentcore/assembler"
	"github.com/kodeflux/agentcore/bus"
	"github.com/kodeflux/agentcore/logging"
	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/model"
	"github.com/kodeflux/agentcore/session"
	"github.com/kodeflux/agentcore/toolkit"
)

// state is the outer loop's lifecycle state.
type state int

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

// consumeTimeout is the outer loop's only cancellation checkpoint.
const consumeTimeout = 1 * time.Second

// cliChannel is the adapter name that gets an empty OutboundMessage when a
// turn produces no reply, so a blocking interactive reader unblocks.
const cliChannel = "cli"

// Options configures a Loop. MaxIterations, MemoryWindow, Temperature and
// MaxTokens drive the inner reason-act loop and the background consolidation
// trigger; ModelName selects which model the provider is asked to run.
type Options struct {
	MaxIterations int
	MemoryWindow  int
	ModelName     string
	Temperature   float64
	MaxTokens     int
	Logger        logging.Logger
}

// Loop is the Agent Core's engine: one instance owns a bus, a session store,
// a memory store, a context assembler, a tool registry and a model provider,
// and drives every conversation across every channel through them.
type Loop struct {
	bus       *bus.Bus
	sessions  session.Store
	memory    *memory.Store
	assembler *assembler.Assembler
	registry  *toolkit.Registry
	provider  model.Provider
	logger    logging.Logger
	// structured is set only when Options.Logger is a *logging.StructuredLogger,
	// giving the inner loop and consolidation paths access to the richer
	// domain-shaped log calls (LogLLMCall, LogToolCall, LogConsolidation)
	// without widening the minimal Logger interface every other component
	// depends on.
	structured *logging.StructuredLogger

	maxIterations int
	memoryWindow  int
	modelName     string
	temperature   float64
	maxTokens     int

	mu    sync.Mutex
	state state

	consolidation *consolidationTracker
}

// New constructs a Loop. The returned Loop is not running until Run is
// called.
func New(
	b *bus.Bus,
	sessions session.Store,
	memStore *memory.Store,
	asm *assembler.Assembler,
	registry *toolkit.Registry,
	provider model.Provider,
	optFns ...func(*Options),
) *Loop {
	opts := Options{
		MaxIterations: 15,
		MemoryWindow:  40,
		ModelName:     "",
		Temperature:   0.7,
		MaxTokens:     4096,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	l := &Loop{
		bus:           b,
		sessions:      sessions,
		memory:        memStore,
		assembler:     asm,
		registry:      registry,
		provider:      provider,
		logger:        opts.Logger,
		maxIterations: opts.MaxIterations,
		memoryWindow:  opts.MemoryWindow,
		modelName:     opts.ModelName,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		state:         stateStopped,
		consolidation: newConsolidationTracker(),
	}
	l.structured, _ = opts.Logger.(*logging.StructuredLogger)
	return l
}

// Run drives the outer loop until ctx is canceled or Stop is called:
// STOPPED -> RUNNING -> STOPPING -> STOPPED. Tool-connection initialization
// is the caller's responsibility (best-effort, before Run); Run itself only
// drains the bus.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.state = stateRunning
	l.mu.Unlock()

	defer func() {
		l.consolidation.waitAll()
		l.mu.Lock()
		l.state = stateStopped
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		running := l.state == stateRunning
		l.mu.Unlock()
		if !running {
			return
		}

		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.state = stateStopping
			l.mu.Unlock()
			return
		default:
		}

		msg, ok := l.bus.ConsumeInbound(ctx, consumeTimeout)
		if !ok {
			continue
		}

		l.handleInbound(ctx, msg)
	}
}

// Stop transitions the loop to STOPPING; the next poll timeout observes it.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state == stateRunning {
		l.state = stateStopping
	}
	l.mu.Unlock()
}

func (l *Loop) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	out, err := l.processMessageRecovered(ctx, msg)
	if err != nil {
		l.logger.Error("agentloop: process_message failed", "channel", msg.Channel, "chat_id", msg.ChatID, "error", err)
		l.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: fmt.Sprintf("Sorry, I encountered an error: %s", err.Error()),
		})
		return
	}

	if out != nil {
		l.bus.PublishOutbound(*out)
		return
	}

	if msg.Channel == cliChannel {
		l.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Metadata: msg.Metadata})
	}
}

// processMessageRecovered wraps processMessage so a panic inside tool
// execution or provider plumbing surfaces as an error rather than taking
// down the whole outer loop.
func (l *Loop) processMessageRecovered(ctx context.Context, msg bus.InboundMessage) (out *bus.OutboundMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.processMessage(ctx, msg)
}
