package agentloop

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kodeflux/agentcore/assembler"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
)

const iterationCapMessage = "I reached the maximum number of tool call iterations (MAX_ITERATIONS) without completing the task. You can try breaking the task into smaller steps."

// thinkBlock matches a <thinking>...</thinking> block, non-greedy and
// spanning newlines.
var thinkBlock = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// progressFunc publishes an interim chunk; toolHint marks it as a tool
// invocation annotation rather than partial assistant text.
type progressFunc func(content string, toolHint bool)

// loopResult is what runAgentLoop hands back to per-message processing.
type loopResult struct {
	finalContent string
	toolsUsed    []string
	messages     []message.ChatMessage
}

// runAgentLoop drives the reason-act iteration: call the provider, and
// either stop with a final answer or execute every requested tool call and
// loop again, up to maxIterations.
func (l *Loop) runAgentLoop(ctx context.Context, messages []message.ChatMessage, onProgress progressFunc) (*loopResult, error) {
	var toolsUsed []string
	var finalContent *string

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		callStart := time.Now()
		resp, err := l.provider.Chat(ctx, messages, l.registry.Definitions(), l.modelName, l.temperature, l.maxTokens)
		if l.structured != nil {
			l.structured.LogLLMCall(l.modelName, time.Since(callStart), err == nil, err)
		}
		if err != nil {
			return nil, fmt.Errorf("provider chat: %w", err)
		}

		if resp.HasToolCalls {
			var contentStr string
			if resp.Content != nil {
				contentStr = *resp.Content
			}
			if clean := stripThink(contentStr); clean != nil && onProgress != nil {
				onProgress(*clean, false)
			}
			if onProgress != nil {
				onProgress(toolHint(resp.ToolCalls), true)
			}

			messages = assembler.AddAssistantMessage(messages, resp.Content, resp.ToolCalls, resp.ReasoningContent)

			for _, tc := range resp.ToolCalls {
				toolsUsed = append(toolsUsed, tc.Name)
				toolStart := time.Now()
				result := l.registry.Execute(ctx, tc.Name, tc.Arguments)
				if l.structured != nil {
					success := !strings.HasPrefix(result, "Error")
					l.structured.LogToolCall(tc.Name, time.Since(toolStart), success, nil)
				}
				messages = assembler.AddToolResult(messages, tc.ID, tc.Name, result)
			}
			continue
		}

		var contentStr string
		if resp.Content != nil {
			contentStr = *resp.Content
		}
		finalContent = stripThink(contentStr)
		messages = assembler.AddAssistantMessage(messages, finalContent, nil, resp.ReasoningContent)
		break
	}

	content := iterationCapMessage
	if finalContent != nil {
		content = *finalContent
	}

	return &loopResult{finalContent: content, toolsUsed: toolsUsed, messages: messages}, nil
}

// stripThink removes every <thinking>...</thinking> block and trims
// surrounding whitespace; returns nil if nothing is left.
func stripThink(s string) *string {
	cleaned := thinkBlock.ReplaceAllString(s, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// toolHint builds a comma-joined annotation for a batch of tool calls: each
// call renders as name("<first string arg, truncated to 40 chars>…") if its
// first positional argument is a string, else just name.
func toolHint(calls []model.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		if arg, ok := firstStringArg(c.Arguments); ok {
			parts = append(parts, fmt.Sprintf("%s(%q)", c.Name, truncateArg(arg)))
		} else {
			parts = append(parts, c.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func truncateArg(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
