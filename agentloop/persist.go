package agentloop

import (
	"time"

	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/session"
)

// toolContentTruncateLimit is the maximum stored length of a tool-result
// message's content before truncation.
const toolContentTruncateLimit = 500

// saveTurn appends allMsgs[skip:] to sess.Messages: drops ReasoningContent,
// derives ToolsUsed on each assistant entry from its own tool_calls,
// truncates long tool-result content, stamps a timestamp if absent, and
// bumps sess.UpdatedAt. It never touches entries already in sess.Messages.
func saveTurn(sess *session.Session, allMsgs []message.ChatMessage, skip int) {
	if skip > len(allMsgs) {
		skip = len(allMsgs)
	}

	for _, m := range allMsgs[skip:] {
		m.ReasoningContent = nil

		if m.Role == message.RoleAssistant && len(m.ToolCalls) > 0 {
			used := make([]string, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				used = append(used, tc.Function.Name)
			}
			m.ToolsUsed = used
		}

		if m.Role == message.RoleTool {
			if content, ok := m.StringContent(); ok {
				if runes := []rune(content); len(runes) > toolContentTruncateLimit {
					m.Content = string(runes[:toolContentTruncateLimit]) + "\n... (truncated)"
				}
			}
		}

		if m.Timestamp == "" {
			m.Timestamp = time.Now().Format(time.RFC3339)
		}

		sess.Messages = append(sess.Messages, m)
	}

	sess.UpdatedAt = time.Now()
}
