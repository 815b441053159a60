// Package anthropic implements model.Provider against Anthropic's Messages
// API, including tool_use/tool_result round-tripping.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
)

// Options configures the Anthropic provider.
type Options struct {
	APIKey string
}

// Provider wraps the Anthropic Messages API behind model.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// New creates a Provider using the official Anthropic client.
func New(optFns ...func(*Options)) *Provider {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates a Provider from an existing Anthropic client.
func NewFromClient(client *anthropic.Client) *Provider {
	return &Provider{client: client}
}

// Chat implements model.Provider against the Anthropic Messages API.
func (p *Provider) Chat(ctx context.Context, messages []message.ChatMessage, tools []model.ToolDefinition, modelName string, temperature float64, maxTokens int) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelName),
		Messages:    buildMessages(messages),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
	}

	if system := extractSystem(messages); len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	return toResponse(resp), nil
}

func buildMessages(messages []message.ChatMessage) []anthropic.MessageParam {
	toolResponses := make(map[string]string)
	for _, m := range messages {
		if m.Role != message.RoleTool {
			continue
		}
		text, _ := m.StringContent()
		toolResponses[m.ToolCallID] = text
	}

	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case message.RoleSystem, message.RoleTool:
			continue
		case message.RoleUser:
			if blocks := userBlocks(m); len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case message.RoleAssistant:
			blocks, results := assistantBlocks(m, toolResponses)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
			if len(results) > 0 {
				out = append(out, anthropic.NewUserMessage(results...))
			}
		}
	}
	return out
}

func userBlocks(m message.ChatMessage) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	if text, ok := m.StringContent(); ok {
		if text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(text))
		}
		return blocks
	}
	parts, _ := m.PartsContent()
	for _, part := range parts {
		switch part.Type {
		case "text":
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case "image_url":
			if part.ImageURL != nil {
				mediaType, data := splitDataURL(part.ImageURL.URL)
				blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, data))
			}
		}
	}
	return blocks
}

// assistantBlocks returns the assistant turn's text and tool_use blocks, and
// separately the tool_result blocks answering them, which the Messages API
// only accepts in the following user turn.
func assistantBlocks(m message.ChatMessage, toolResponses map[string]string) (blocks, results []anthropic.ContentBlockParamUnion) {
	if text, ok := m.StringContent(); ok && text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}

	var ids []string
	for _, tc := range m.ToolCalls {
		var input any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				input = tc.Function.Arguments
			}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
		ids = append(ids, tc.ID)
	}

	for _, id := range ids {
		if resp, ok := toolResponses[id]; ok {
			results = append(results, anthropic.NewToolResultBlock(id, resp, false))
			delete(toolResponses, id)
		}
	}
	return blocks, results
}

func extractSystem(messages []message.ChatMessage) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role != message.RoleSystem {
			continue
		}
		if text, ok := m.StringContent(); ok && text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	return blocks
}

func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if t.Function.Parameters != nil {
			if props, ok := t.Function.Parameters["properties"]; ok {
				schema.Properties = props
			}
			schema.Required = stringsFrom(t.Function.Parameters["required"])
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, t.Function.Name)
	}
	return out
}

// splitDataURL splits a "data:<mime>;base64,<bytes>" URL into its media type
// and base64 payload. Malformed input degrades to an empty media type rather
// than erroring, since a bad image silently drops per the assembler's media
// contract.
func splitDataURL(url string) (mediaType, data string) {
	const prefix = "data:"
	if !strings.HasPrefix(url, prefix) {
		return "", url
	}
	rest := url[len(prefix):]
	semi := strings.Index(rest, ";base64,")
	if semi == -1 {
		return "", ""
	}
	return rest[:semi], rest[semi+len(";base64,"):]
}

func stringsFrom(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toResponse(resp *anthropic.Message) *model.Response {
	var text string
	var toolCalls []model.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			tb := block.AsToolUse()
			args := "{}"
			if tb.Input != nil {
				if b, err := json.Marshal(tb.Input); err == nil {
					args = string(b)
				}
			}
			toolCalls = append(toolCalls, model.ToolCall{ID: tb.ID, Name: tb.Name, Arguments: args})
		}
	}

	r := &model.Response{HasToolCalls: len(toolCalls) > 0, ToolCalls: toolCalls}
	if text != "" {
		r.Content = &text
	}
	return r
}
