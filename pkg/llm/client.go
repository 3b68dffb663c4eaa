package llm

import "context"

// Client is the provider-neutral adapter contract. Implementations are
// stateless after construction and safe for concurrent calls.
type Client interface {
	// Call sends the conversation context plus optional tool
	// declarations and system prompt, and returns the normalized
	// response. Failures are *APIError, *ResponseError or *Error.
	Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error)

	// ModelName returns the configured model identifier.
	ModelName() string
}

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help you answer accurately, and answer concisely."
