// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. It also offers a StructuredLogger with domain
// helpers for the three things agentcore times and reports on: model calls,
// tool calls, and memory consolidation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user-friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface used across agentcore. The
// session store, memory store, context assembler and agent loop take one of
// these via functional options, defaulting to NoOpLogger; the bus and the
// tool registry do not log.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StructuredLogger wraps a *slog.Logger with a configured level and the
// domain-shaped log calls agentloop uses to report on model calls, tool
// calls, and memory consolidation runs.
type StructuredLogger struct {
	logger *slog.Logger
	level  LogLevel
}

// LoggerConfig configures construction of a StructuredLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
}

// DefaultLoggerConfig returns a baseline JSON info-level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true}
}

// NewLogger builds a StructuredLogger from a config, or from
// DefaultLoggerConfig if cfg is nil.
func NewLogger(cfg *LoggerConfig) *StructuredLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &StructuredLogger{logger: slog.New(handler), level: cfg.Level}
}

// NewSlogLogger creates a StructuredLogger with the given level, format
// ("json" or "text") and source-location flag.
func NewSlogLogger(level LogLevel, format string, addSource bool) *StructuredLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *StructuredLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	l.logger.Log(context.Background(), level, msg, args...)
}

// Debug logs at debug level.
func (l *StructuredLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...) }

// Info logs at info level.
func (l *StructuredLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *StructuredLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...) }

// Error logs at error level.
func (l *StructuredLogger) Error(msg string, args ...any) { l.log(slog.LevelError, l.level <= LogLevelError, msg, args...) }

// LogLLMCall records one provider round trip from the reason-act loop: the
// model name, how long the call took, and whether it returned an error.
// model.Response carries no token-usage field, so no token count is logged.
func (l *StructuredLogger) LogLLMCall(model string, dur time.Duration, success bool, err error) {
	attrs := []slog.Attr{slog.String("model", model), slog.Duration("duration", dur), slog.Bool("success", success)}
	level, msg := slog.LevelInfo, "model call completed"
	if !success {
		level, msg = slog.LevelError, "model call failed"
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogToolCall records one tool execution from the reason-act loop: the tool
// name, how long it took, and whether the registry reported success.
func (l *StructuredLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	attrs := []slog.Attr{slog.String("tool_name", tool), slog.Duration("duration", dur), slog.Bool("success", success)}
	level, msg := slog.LevelInfo, "tool execution completed"
	if !success {
		level, msg = slog.LevelError, "tool execution failed"
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogConsolidation records the outcome of a single memory consolidation
// run: how many turns were unconsolidated going in, whether it archived
// anything, how long it took, and whether it succeeded.
func (l *StructuredLogger) LogConsolidation(sessionKey string, turnsIn int, archived bool, dur time.Duration, success bool, err error) {
	attrs := []slog.Attr{
		slog.String("session_key", sessionKey),
		slog.Int("turns_in", turnsIn),
		slog.Bool("archived", archived),
		slog.Duration("duration", dur),
		slog.Bool("success", success),
	}
	level, msg := slog.LevelInfo, "memory consolidation completed"
	if !success {
		level, msg = slog.LevelError, "memory consolidation failed"
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// NoOpLogger discards all log messages. It is the default for every
// component's Logger option.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}
