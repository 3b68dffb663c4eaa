package llm

import (
	"fmt"
	"strings"
)

// NewClient selects a provider adapter from the model-name prefix:
// "claude-*" routes to Anthropic, "gpt-*" and "openai-*" to OpenAI.
// The api key may be empty, in which case the provider's environment
// variable is consulted.
func NewClient(modelName, apiKey string) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(modelName))
	switch {
	case name == "":
		return nil, fmt.Errorf("model name cannot be empty")
	case strings.HasPrefix(name, "claude"):
		return NewAnthropicClient(modelName, apiKey)
	case strings.HasPrefix(name, "gpt"), strings.HasPrefix(name, "openai"):
		return NewOpenAIClient(modelName, apiKey)
	default:
		return nil, fmt.Errorf("unsupported model %q: expected a claude-* or gpt-* model", modelName)
	}
}
