// Package logging provides a minimal logging interface and adapters used
// throughout agentcore.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the session store, memory store, context assembler and
// agent loop accept for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - StructuredLogger, a slog-backed implementation with LogLLMCall,
//     LogToolCall and LogConsolidation for the agent loop's domain events
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	loop := agentloop.New(b, sessions, memStore, asm, registry, provider, func(o *agentloop.Options) {
//		o.Logger = logger
//	})
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
