package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicProvider = "anthropic"

// defaultMaxTokens caps the assistant output per call.
const defaultMaxTokens = 4096

// AnthropicClient adapts the Anthropic Messages API (tool-use content
// blocks) to the Client interface. Calls are non-streaming.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption customizes an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicMaxTokens overrides the per-call output token cap.
func WithAnthropicMaxTokens(n int64) AnthropicOption {
	return func(c *AnthropicClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewAnthropicClient builds an adapter for the given model. The API key
// is read from ANTHROPIC_API_KEY when apiKey is empty.
func NewAnthropicClient(model, apiKey string, opts ...AnthropicOption) (*AnthropicClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY)")
	}
	c := &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ModelName returns the configured model identifier.
func (c *AnthropicClient) ModelName() string { return c.model }

// Call sends the conversation and normalizes the response. Transport
// failures come back as *APIError, unusable responses as *ResponseError.
func (c *AnthropicClient) Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	msgs, err := encodeAnthropicMessages(messages)
	if err != nil {
		return nil, &Error{Provider: anthropicProvider, Err: err}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		encoded, err := encodeAnthropicTools(tools)
		if err != nil {
			return nil, &Error{Provider: anthropicProvider, Err: err}
		}
		params.Tools = encoded
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &APIError{Provider: anthropicProvider, Err: err}
	}
	if msg == nil {
		return nil, &ResponseError{Provider: anthropicProvider, Reason: "empty message"}
	}

	resp := &Response{ModelName: c.model}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, &ResponseError{
						Provider: anthropicProvider,
						Reason:   fmt.Sprintf("tool_use block %s has invalid input: %v", block.ID, err),
					}
				}
			}
			if args == nil {
				args = map[string]any{}
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	resp.Text = text.String()
	if resp.Text == "" && len(resp.ToolCalls) == 0 {
		return nil, &ResponseError{Provider: anthropicProvider, Reason: "response has neither text nor tool calls"}
	}
	resp.Usage = TokenUsage{
		Input:  int(msg.Usage.InputTokens),
		Output: int(msg.Usage.OutputTokens),
		Total:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return resp, nil
}

// encodeAnthropicMessages converts context messages to the Anthropic
// wire shape. Tool results travel as tool_result blocks inside user
// messages; consecutive tool results are batched into one message so
// every tool_use block is answered in the immediately following turn.
func encodeAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		switch m.Role {
		case RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Text, false))
			continue
		case RoleUser:
			flushResults()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		case RoleAssistant:
			flushResults()
			var content []anthropic.ContentBlockParamUnion
			if m.Text != "" {
				content = append(content, anthropic.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(content...))
		}
	}
	flushResults()
	return out, nil
}

// encodeAnthropicTools converts tool declarations to the API format.
// The JSON-schema object is round-tripped through JSON so the SDK's
// union type picks up every schema keyword.
func encodeAnthropicTools(tools []ToolDeclaration) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if t.Parameters != nil {
			raw, err := json.Marshal(t.Parameters)
			if err != nil {
				return nil, fmt.Errorf("tool %s: invalid parameters schema: %w", t.Name, err)
			}
			if err := json.Unmarshal(raw, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: invalid parameters schema: %w", t.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil && t.Description != "" {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, param)
	}
	return out, nil
}
