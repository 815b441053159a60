package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
	"github.com/kodeflux/agentcore/session"
	"github.com/tidwall/gjson"
)

// SaveMemoryToolName is the single tool advertised during consolidation.
const SaveMemoryToolName = "save_memory"

// SaveMemoryToolDefinition is the fixed schema the consolidation provider
// call advertises, per the memory-consolidation tool contract.
var SaveMemoryToolDefinition = model.ToolDefinition{
	Type: "function",
	Function: model.FunctionDefinition{
		Name:        SaveMemoryToolName,
		Description: "Save the memory consolidation result to persistent storage.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"history_entry": map[string]any{
					"type": "string",
					"description": "A paragraph (2-5 sentences) summarizing key events/decisions/topics. " +
						"Start with [YYYY-MM-DD HH:MM]. Include detail useful for substring search.",
				},
				"memory_update": map[string]any{
					"type": "string",
					"description": "Full updated long-term memory as Markdown. Include all existing " +
						"facts plus new ones. Return unchanged if nothing new.",
				},
			},
			"required": []any{"history_entry", "memory_update"},
		},
	},
}

const consolidationSystemPrompt = "You are a memory consolidation agent. You will be given the current " +
	"long-term memory and a block of recent conversation. Call save_memory exactly once with an updated " +
	"history entry and the full updated long-term memory."

// Consolidate determines the window to archive, formats it, asks the
// provider to call save_memory, applies the result to the memory files, and
// on success advances sess.LastConsolidated. It never mutates sess.Messages.
//
// Returns true when there is nothing to archive (a no-op, sess unchanged).
// Returns false (with sess unchanged) on any of: no save_memory tool call in
// the response, missing or empty history_entry/memory_update arguments, or
// an I/O or provider failure (the latter two also return the error).
func Consolidate(ctx context.Context, sess *session.Session, store *Store, provider model.Provider, modelName string, archiveAll bool, memoryWindow int) (bool, error) {
	archiveSlice, keepCount, ok := windowToArchive(sess, archiveAll, memoryWindow)
	if !ok {
		return true, nil // nothing to archive: success, no action
	}

	formatted := formatEntries(archiveSlice)
	if formatted == "" {
		return true, nil
	}

	currentMemory, err := store.ReadLongTerm()
	if err != nil {
		return false, err
	}
	if currentMemory == "" {
		currentMemory = "(empty)"
	}

	prompt := []message.ChatMessage{
		message.NewSystem(consolidationSystemPrompt),
		message.NewUserText(fmt.Sprintf("Current long-term memory:\n\n%s\n\nRecent conversation:\n\n%s", currentMemory, formatted)),
	}

	resp, err := provider.Chat(ctx, prompt, []model.ToolDefinition{SaveMemoryToolDefinition}, modelName, 0, 4096)
	if err != nil {
		return false, err
	}
	if resp == nil || !resp.HasToolCalls || len(resp.ToolCalls) == 0 {
		return false, nil
	}

	var saveCall *model.ToolCall
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].Name == SaveMemoryToolName {
			saveCall = &resp.ToolCalls[i]
			break
		}
	}
	if saveCall == nil {
		return false, nil
	}

	historyEntry := gjson.Get(saveCall.Arguments, "history_entry").String()
	memoryUpdate := gjson.Get(saveCall.Arguments, "memory_update").String()
	if strings.TrimSpace(historyEntry) == "" || strings.TrimSpace(memoryUpdate) == "" {
		return false, nil
	}

	if err := store.AppendHistory(historyEntry); err != nil {
		return false, err
	}
	existing, err := store.ReadLongTerm()
	if err != nil {
		return false, err
	}
	if memoryUpdate != existing {
		if err := store.WriteLongTerm(memoryUpdate); err != nil {
			return false, err
		}
	}

	if archiveAll {
		sess.LastConsolidated = 0
	} else {
		sess.LastConsolidated = len(sess.Messages) - keepCount
	}
	return true, nil
}

// windowToArchive returns the slice of sess.Messages to archive, the
// keep-count used to compute the post-consolidation cursor, and whether
// there is anything to do at all.
func windowToArchive(sess *session.Session, archiveAll bool, memoryWindow int) ([]message.ChatMessage, int, bool) {
	if archiveAll {
		return sess.Messages, 0, true
	}

	keepCount := memoryWindow / 2
	if len(sess.Messages) <= keepCount || sess.Unconsolidated() <= 0 {
		return nil, keepCount, false
	}

	end := len(sess.Messages) - keepCount
	if end <= sess.LastConsolidated {
		return nil, keepCount, false
	}
	slice := sess.Messages[sess.LastConsolidated:end]
	if len(slice) == 0 {
		return nil, keepCount, false
	}
	return slice, keepCount, true
}

// formatEntries renders archived messages as one line each:
// "[<timestamp-minute>] <ROLE>[ [tools: t1, t2]]: <content>", skipping
// entries whose text content is empty.
func formatEntries(entries []message.ChatMessage) string {
	var lines []string
	for _, m := range entries {
		content := m.TextOnly()
		if strings.TrimSpace(content) == "" {
			continue
		}

		line := fmt.Sprintf("[%s] %s", formatTimestampMinute(m.Timestamp), strings.ToUpper(string(m.Role)))
		if len(m.ToolsUsed) > 0 {
			line += fmt.Sprintf(" [tools: %s]", strings.Join(m.ToolsUsed, ", "))
		}
		line += ": " + content
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatTimestampMinute(ts string) string {
	if ts == "" {
		return time.Now().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	if len(ts) >= 16 {
		return ts[:16]
	}
	return ts
}
