package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openaiProvider = "openai"

// ChatClient is the subset of the go-openai client the adapter uses.
// Tests substitute a scripted implementation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient adapts the Chat Completions API (function calling) to
// the Client interface.
type OpenAIClient struct {
	chat  ChatClient
	model string
}

// NewOpenAIClient builds an adapter for the given model. The API key is
// read from OPENAI_API_KEY when apiKey is empty.
func NewOpenAIClient(model, apiKey string) (*OpenAIClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required (set OPENAI_API_KEY)")
	}
	return &OpenAIClient{chat: openai.NewClient(apiKey), model: model}, nil
}

// NewOpenAIClientWithChat wires a caller-supplied chat client. Used by
// tests and by deployments that need custom transports.
func NewOpenAIClientWithChat(model string, chat ChatClient) (*OpenAIClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if chat == nil {
		return nil, fmt.Errorf("chat client cannot be nil")
	}
	return &OpenAIClient{chat: chat, model: model}, nil
}

// ModelName returns the configured model identifier.
func (c *OpenAIClient) ModelName() string { return c.model }

// Call sends the conversation and normalizes the response.
func (c *OpenAIClient) Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	msgs, err := encodeOpenAIMessages(messages, systemPrompt)
	if err != nil {
		return nil, &Error{Provider: openaiProvider, Err: err}
	}
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		encoded, err := encodeOpenAITools(tools)
		if err != nil {
			return nil, &Error{Provider: openaiProvider, Err: err}
		}
		req.Tools = encoded
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &APIError{Provider: openaiProvider, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ResponseError{Provider: openaiProvider, Reason: "response has no choices"}
	}

	choice := resp.Choices[0].Message
	out := &Response{
		Text:      choice.Content,
		ModelName: c.model,
		Usage: TokenUsage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
	}
	for _, call := range choice.ToolCalls {
		var args map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, &ResponseError{
					Provider: openaiProvider,
					Reason:   fmt.Sprintf("tool call %s has invalid arguments: %v", call.ID, err),
				}
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, &ResponseError{Provider: openaiProvider, Reason: "response has neither text nor tool calls"}
	}
	return out, nil
}

// encodeOpenAIMessages converts context messages to the chat wire
// shape. The system prompt, when present, leads the conversation.
func encodeOpenAIMessages(messages []Message, systemPrompt string) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		switch m.Role {
		case RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Text,
			})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Text,
			}
			for _, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool call %s: %w", tc.ID, err)
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, msg)
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Text,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out, nil
}

// encodeOpenAITools converts tool declarations to function definitions.
func encodeOpenAITools(tools []ToolDeclaration) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tool %s: invalid parameters schema: %w", t.Name, err)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out, nil
}
