package model

import (
	"context"

	"github.com/kodeflux/agentcore/message"
)

// ToolCall is a single function-call request surfaced by a provider.
// Arguments is kept as a raw string because providers may hand back either a
// JSON object or an already-encoded JSON string; callers defensively parse
// it (see parseArguments in the toolkit registry).
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionDefinition describes one callable tool in OpenAI-function-style
// shape: name, description, and a JSON-Schema object for parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinition wraps a FunctionDefinition the way both the OpenAI and
// Anthropic SDKs expect tool declarations to be tagged.
type ToolDefinition struct {
	Type     string              `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// Response is the normalized result of a single chat-completion call.
type Response struct {
	Content          *string
	ToolCalls        []ToolCall
	HasToolCalls     bool
	ReasoningContent *string
}

// Provider is the minimal contract the agent loop depends on to drive
// generation. A call is one non-streaming round trip; the loop itself
// supplies the reason-act iteration.
type Provider interface {
	Chat(ctx context.Context, messages []message.ChatMessage, tools []ToolDefinition, modelName string, temperature float64, maxTokens int) (*Response, error)
}
