// Package toolkit implements the function/tool-calling subsystem: the Tool
// contract, a JSON-schema-validating Registry, and the one tool every agent
// loop needs built in, the "message" tool used to publish an out-of-band
// reply mid-turn.
package toolkit

import (
	"context"
	"fmt"
)

// Tool exposes a callable capability to the model: a name, a description,
// a JSON-Schema-shaped parameter spec (object type at root), and an
// execution method returning a stringified result.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolError represents a structured failure during tool execution.
// The registry never returns it to the caller directly — it always renders
// errors as the fixed "Error: ..." conversational string the model can react
// to — but concrete tools may use it internally for consistent codes.
type ToolError struct {
	Tool    string
	Message string
	Code    string
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
