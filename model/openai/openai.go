// Package openai implements model.Provider against the OpenAI Chat
// Completions API, including function/tool calling.
package openai

import (
	"context"
	"fmt"

	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/model"
	"github.com/openai/openai-go"
)

// Provider wraps the OpenAI Chat Completions API behind model.Provider.
type Provider struct {
	client *openai.Client
}

// New creates a Provider using the official OpenAI client.
func New() *Provider {
	client := openai.NewClient()
	return &Provider{client: &client}
}

// NewFromClient creates a Provider from an existing OpenAI client.
func NewFromClient(client *openai.Client) *Provider {
	return &Provider{client: client}
}

// Chat implements model.Provider against OpenAI Chat Completions.
func (p *Provider) Chat(ctx context.Context, messages []message.ChatMessage, tools []model.ToolDefinition, modelName string, temperature float64, maxTokens int) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               modelName,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	return toResponse(resp.Choices[0]), nil
}

func buildMessages(messages []message.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	toolResponses := make(map[string]string)
	var toolOrder []string
	for _, m := range messages {
		if m.Role != message.RoleTool {
			continue
		}
		if _, seen := toolResponses[m.ToolCallID]; seen {
			continue
		}
		text, _ := m.StringContent()
		toolResponses[m.ToolCallID] = text
		toolOrder = append(toolOrder, m.ToolCallID)
	}

	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case message.RoleTool:
			continue
		case message.RoleSystem:
			out = append(out, openai.SystemMessage(m.TextOnly()))
		case message.RoleUser:
			out = append(out, userMessage(m))
		case message.RoleAssistant:
			out = append(out, assistantMessages(m, toolResponses)...)
		}
	}
	for _, id := range toolOrder {
		if resp, ok := toolResponses[id]; ok {
			out = append(out, openai.ToolMessage(resp, id))
		}
	}
	return out
}

func userMessage(m message.ChatMessage) openai.ChatCompletionMessageParamUnion {
	if text, ok := m.StringContent(); ok {
		return openai.UserMessage(text)
	}

	parts, _ := m.PartsContent()
	var blocks []openai.ChatCompletionContentPartUnionParam
	for _, part := range parts {
		switch part.Type {
		case "text":
			blocks = append(blocks, openai.TextContentPart(part.Text))
		case "image_url":
			if part.ImageURL != nil {
				blocks = append(blocks, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: part.ImageURL.URL}))
			}
		}
	}
	return openai.UserMessage(blocks)
}

func assistantMessages(m message.ChatMessage, toolResponses map[string]string) []openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return []openai.ChatCompletionMessageParamUnion{openai.AssistantMessage(m.TextOnly())}
	}

	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	out := []openai.ChatCompletionMessageParamUnion{{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Role:      "assistant",
			ToolCalls: toolCalls,
		},
	}}
	for _, tc := range m.ToolCalls {
		if resp, ok := toolResponses[tc.ID]; ok {
			out = append(out, openai.ToolMessage(resp, tc.ID))
			delete(toolResponses, tc.ID)
		}
	}
	return out
}

func buildTools(tools []model.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Function.Name,
				Description: openai.String(t.Function.Description),
				Parameters:  t.Function.Parameters,
			},
		}
	}
	return out
}

func toResponse(choice openai.ChatCompletionChoice) *model.Response {
	r := &model.Response{}
	if choice.Message.Content != "" {
		content := choice.Message.Content
		r.Content = &content
	}
	for _, tc := range choice.Message.ToolCalls {
		r.ToolCalls = append(r.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	r.HasToolCalls = len(r.ToolCalls) > 0
	return r
}
