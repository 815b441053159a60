// Command agentcored is a minimal stdin/stdout channel adapter that wires
// the bus, session store, memory store, context assembler, tool registry
// and a model provider into a running agent loop, so the engine is runnable
// end to end from a terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kodeflux/agentcore/agentloop"
	"github.com/kodeflux/agentcore/assembler"
	"github.com/kodeflux/agentcore/bus"
	"github.com/kodeflux/agentcore/logging"
	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/model"
	"github.com/kodeflux/agentcore/model/anthropic"
	"github.com/kodeflux/agentcore/model/openai"
	"github.com/kodeflux/agentcore/session"
	"github.com/kodeflux/agentcore/toolkit"
)

const cliChannel = "cli"

func main() {
	workspace := envOr("AGENTCORE_WORKSPACE", ".")
	modelName := envOr("AGENTCORE_MODEL", "claude-sonnet-4-5")
	chatID := envOr("AGENTCORE_CHAT_ID", "local")

	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)

	provider, err := newProvider()
	if err != nil {
		log.Fatalf("agentcored: %v", err)
	}

	loop, b, err := build(workspace, modelName, provider, logger)
	if err != nil {
		log.Fatalf("agentcored: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go loop.Run(ctx)
	go readStdin(b, chatID)
	printOutbound(ctx, b)
}

func build(workspace, modelName string, provider model.Provider, logger logging.Logger) (*agentloop.Loop, *bus.Bus, error) {
	home, _ := os.UserHomeDir()
	legacyDir := filepath.Join(home, ".nanobot", "sessions")

	sessions, err := session.NewFileStore(filepath.Join(workspace, "sessions"), func(o *session.Options) {
		o.LegacyDir = legacyDir
		o.Logger = logger
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}

	memStore, err := memory.NewStore(filepath.Join(workspace, "memory"), func(o *memory.Options) {
		o.Logger = logger
	})
	if err != nil {
		return nil, nil, fmt.Errorf("memory store: %w", err)
	}

	asm, err := assembler.New(memStore, func(o *assembler.Options) {
		o.AgentName = envOr("AGENTCORE_NAME", "Agent")
		o.Workspace = workspace
		o.Logger = logger
	})
	if err != nil {
		return nil, nil, fmt.Errorf("assembler: %w", err)
	}

	registry := toolkit.NewRegistry()
	registry.Register(toolkit.NewMessageTool())

	b := bus.New()

	loop := agentloop.New(b, sessions, memStore, asm, registry, provider, func(o *agentloop.Options) {
		o.ModelName = modelName
		o.Logger = logger
	})

	return loop, b, nil
}

// newProvider selects a model.Provider from the environment: Anthropic if
// ANTHROPIC_API_KEY is set, else OpenAI if OPENAI_API_KEY is set.
func newProvider() (model.Provider, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return anthropic.New(func(o *anthropic.Options) { o.APIKey = key }), nil
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return openai.New(), nil
	}
	return nil, fmt.Errorf("set ANTHROPIC_API_KEY or OPENAI_API_KEY")
}

func readStdin(b *bus.Bus, chatID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		b.PublishInbound(bus.InboundMessage{Channel: cliChannel, ChatID: chatID, SenderID: chatID, Content: line})
	}
}

func printOutbound(ctx context.Context, b *bus.Bus) {
	for {
		out, ok := b.ConsumeOutbound(ctx, 1*time.Second)
		if !ok {
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}
		if out.Content == "" {
			continue
		}
		fmt.Println(out.Content)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
