// Package message defines the chat-message shapes exchanged between the
// session store, the context assembler and the model providers: a tagged
// record over role with role-dependent fields, serialized line-delimited so
// the on-disk shape stays flexible across providers.
package message

import "encoding/json"

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ImageURL carries a data-URL encoded image, mirroring the OpenAI/Anthropic
// vision content-part shape so either provider adapter can consume it
// directly.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a mixed user-content sequence: either a text
// chunk or an image reference. Exactly one of Text/ImageURL is populated,
// selected by Type.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextContentPart builds a {type:"text"} content part.
func TextContentPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImageContentPart builds a {type:"image_url"} content part from a data URL.
func ImageContentPart(dataURL string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}}
}

// FunctionCall is the name/arguments pair inside a tool-call record.
// Arguments is a JSON-encoded string, not a nested object, so it round-trips
// verbatim through providers that hand back a raw string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallRecord is the persisted/wire shape of a single tool invocation
// requested by the assistant.
type ToolCallRecord struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// ChatMessage is a tagged record over Role; which fields are meaningful
// depends on Role. Content holds either a plain string or
// an ordered []ContentPart — callers use StringContent/PartsContent to pull
// it back out without repeating the type switch.
type ChatMessage struct {
	Role             Role             `json:"role"`
	Content          any              `json:"content"`
	ToolCalls        []ToolCallRecord `json:"tool_calls,omitempty"`
	ToolCallID       string           `json:"tool_call_id,omitempty"`
	Name             string           `json:"name,omitempty"`
	ReasoningContent *string          `json:"reasoning_content,omitempty"`
	ToolsUsed        []string         `json:"tools_used,omitempty"`
	Timestamp        string           `json:"timestamp,omitempty"`
}

// StringContent returns Content as a string when it was stored as a plain
// string, and ok=false otherwise (e.g. a mixed part sequence, or nil).
func (m ChatMessage) StringContent() (string, bool) {
	s, ok := m.Content.(string)
	return s, ok
}

// PartsContent returns Content as a []ContentPart when it was stored as a
// mixed sequence. Handles both the typed form (set in-process) and the
// map[string]any form produced by decoding JSON.
func (m ChatMessage) PartsContent() ([]ContentPart, bool) {
	switch v := m.Content.(type) {
	case []ContentPart:
		return v, true
	case []any:
		parts := make([]ContentPart, 0, len(v))
		for _, raw := range v {
			b, err := json.Marshal(raw)
			if err != nil {
				return nil, false
			}
			var p ContentPart
			if err := json.Unmarshal(b, &p); err != nil {
				return nil, false
			}
			parts = append(parts, p)
		}
		return parts, true
	default:
		return nil, false
	}
}

// TextOnly extracts a best-effort plain-text rendering of Content, used for
// logging, truncation and memory-consolidation formatting. It never fails:
// unrecognized shapes render as "".
func (m ChatMessage) TextOnly() string {
	if s, ok := m.StringContent(); ok {
		return s
	}
	if parts, ok := m.PartsContent(); ok {
		var out string
		for _, p := range parts {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	}
	return ""
}

// Sanitize returns a copy stripped of Timestamp and ToolsUsed and any field
// not part of the provider wire protocol (role, content, tool_calls,
// tool_call_id, name), per the turn-aligned history contract.
func (m ChatMessage) Sanitize() ChatMessage {
	return ChatMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
}

// EncodeLine marshals a message to a single JSON line (no trailing newline).
func EncodeLine(m ChatMessage) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeLine unmarshals a single JSON line into a message.
func DecodeLine(line []byte) (ChatMessage, error) {
	var m ChatMessage
	err := json.Unmarshal(line, &m)
	return m, err
}

// NewSystem builds a system message.
func NewSystem(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// NewUserText builds a plain-text user message.
func NewUserText(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewUserParts builds a mixed-content user message (images plus trailing text).
func NewUserParts(parts []ContentPart) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: parts}
}

// NewAssistant builds an assistant message. content may be nil: some
// providers reject the key's absence, so callers always set Content even
// when empty, per the turn-record contract.
func NewAssistant(content any, toolCalls []ToolCallRecord, reasoningContent *string) ChatMessage {
	return ChatMessage{
		Role:             RoleAssistant,
		Content:          content,
		ToolCalls:        toolCalls,
		ReasoningContent: reasoningContent,
	}
}

// NewToolResult builds a tool-result message.
func NewToolResult(toolCallID, name, content string) ChatMessage {
	return ChatMessage{Role: RoleTool, ToolCallID: toolCallID, Name: name, Content: content}
}
