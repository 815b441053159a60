// Package session implements turn-aligned, append-only conversation
// persistence keyed by "channel:chat_id": an in-memory cache backed by a
// JSONL file per session, with legacy-path migration and the
// consolidation-aware history window used to build LLM requests.
package session

import (
	"time"

	"github.com/kodeflux/agentcore/message"
)

// Session is one conversation's full state. Messages is append-only during
// normal operation; consolidation never deletes or reorders entries, it only
// advances LastConsolidated.
type Session struct {
	Key              string                 `json:"key"`
	Messages         []message.ChatMessage  `json:"-"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Metadata         map[string]any         `json:"metadata"`
	LastConsolidated int                    `json:"last_consolidated"`
}

// New constructs an empty session for key, stamped with the current time.
func New(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  nil,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// Clone returns a deep-enough copy so callers cannot mutate the store's
// internal state through a returned session: the message slice and metadata
// map are copied, individual messages are treated as immutable once
// appended.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Messages = append([]message.ChatMessage(nil), s.Messages...)
	clone.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// Clear truncates Messages to empty and resets LastConsolidated to 0. Per the
// data model, this is the sole operation allowed to shrink Messages; it is
// only ever invoked after a successful archive-all consolidation.
func (s *Session) Clear() {
	s.Messages = nil
	s.LastConsolidated = 0
}

// Unconsolidated returns how many messages have accumulated since the last
// consolidation cursor advance.
func (s *Session) Unconsolidated() int {
	return len(s.Messages) - s.LastConsolidated
}

// GetHistory returns the message list fed to the LLM: the window since
// LastConsolidated, capped to the last maxMessages entries, left-trimmed to
// begin at a user entry, and sanitized of bookkeeping fields.
func (s *Session) GetHistory(maxMessages int) []message.ChatMessage {
	window := s.Messages[s.LastConsolidated:]
	if maxMessages > 0 && len(window) > maxMessages {
		window = window[len(window)-maxMessages:]
	}

	start := -1
	for i, m := range window {
		if m.Role == message.RoleUser {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	trimmed := window[start:]
	out := make([]message.ChatMessage, len(trimmed))
	for i, m := range trimmed {
		out[i] = m.Sanitize()
	}
	return out
}
