// Package llm provides the provider-neutral LLM adapter contract and
// concrete adapters for Anthropic (tool-use blocks) and OpenAI-style
// chat completions. All adapters normalize their output into Response.
package llm

import (
	"fmt"
	"strings"
)

// Message roles in a conversation context.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// TokenUsage reports token counts for one call.
type TokenUsage struct {
	Input  int
	Output int
	Total  int
}

// Message is one turn of conversation context, produced by the
// LLM-context projection and converted by each adapter into its
// provider's native format.
type Message struct {
	Role       string
	Text       string
	ToolCalls  []ToolCall // assistant turns only
	ToolCallID string     // tool turns only: the originating call id
	ToolName   string     // tool turns only
}

// Validate checks the structural rules for a context message. Tool
// turns may carry an empty result string; a tool that legitimately
// returns "" still has to be answered.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if m.Role == RoleTool {
		if m.ToolCallID == "" {
			return fmt.Errorf("tool message must have a tool call id")
		}
		return nil
	}
	if strings.TrimSpace(m.Text) == "" && len(m.ToolCalls) == 0 {
		return fmt.Errorf("message must have text or tool calls")
	}
	return nil
}

// ToolDeclaration describes a callable tool to the model.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema object
}

// Response is the normalized result of one LLM call.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	ModelName string
	Usage     TokenUsage
}
