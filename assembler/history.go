package assembler

import (
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
)

// AddAssistantMessage appends an assistant turn to history, converting the
// provider's raw tool calls into the wire-shaped tool call records.
func AddAssistantMessage(history []message.ChatMessage, content *string, toolCalls []model.ToolCall, reasoningContent *string) []message.ChatMessage {
	var records []message.ToolCallRecord
	for _, tc := range toolCalls {
		records = append(records, message.ToolCallRecord{
			ID:   tc.ID,
			Type: "function",
			Function: message.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	var contentValue any
	if content != nil {
		contentValue = *content
	}

	return append(history, message.NewAssistant(contentValue, records, reasoningContent))
}

// AddToolResult appends one tool-call result message to history.
func AddToolResult(history []message.ChatMessage, toolCallID, name, result string) []message.ChatMessage {
	return append(history, message.NewToolResult(toolCallID, name, result))
}
