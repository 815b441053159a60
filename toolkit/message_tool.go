package toolkit

import (
	"context"
	"fmt"
)

// MessageToolName is the registered name of the built-in message tool.
const MessageToolName = "message"

// MessageTool lets the model push a reply to the user mid-turn instead of
// waiting for the turn to finish. Its Execute uses the routing context's
// Publish callback and records, per-turn, that it has sent one — the agent
// loop uses that flag to suppress the default end-of-turn reply.
type MessageTool struct{}

// NewMessageTool constructs the built-in message tool.
func NewMessageTool() *MessageTool { return &MessageTool{} }

func (t *MessageTool) Name() string        { return MessageToolName }
func (t *MessageTool) Description() string { return "Send a message to the user immediately, before finishing this turn." }

func (t *MessageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The message text to send to the user right now.",
			},
		},
		"required": []any{"content"},
	}
}

func (t *MessageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	rc, ok := RoutingFromContext(ctx)
	if !ok || rc.Publish == nil {
		return "", fmt.Errorf("message tool has no routing context for this turn")
	}

	content, _ := args["content"].(string)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}

	rc.Publish(content)
	rc.MarkSent()
	return "Message sent.", nil
}
