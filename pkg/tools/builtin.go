package tools

import (
	"context"
	"fmt"
	"time"
)

// NewBuiltinRegistry returns a registry preloaded with the built-in
// tools: get_current_time, echo and calculate.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, t := range Builtins() {
		// Built-in descriptors are static; a failure here is a
		// programming error.
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Builtins returns the descriptors for the built-in tools.
func Builtins() []Tool {
	return []Tool{
		{
			Name:        "get_current_time",
			Description: "Get the current date and time as an ISO 8601 UTC timestamp.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timezone_name": map[string]any{
						"type":        "string",
						"description": "Timezone name. Only UTC is supported.",
					},
				},
				"required": []string{},
			},
			Fn: getCurrentTime,
		},
		{
			Name:        "echo",
			Description: "Return the provided message unchanged. Useful for testing.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "The message to echo back.",
					},
				},
				"required": []string{"message"},
			},
			Fn: echo,
		},
		{
			Name:        "calculate",
			Description: "Evaluate a restricted arithmetic expression with numbers, parentheses and the operators + - * / // % **.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": "The arithmetic expression to evaluate.",
					},
				},
				"required": []string{"expression"},
			},
			Fn: calculateTool,
		},
	}
}

func getCurrentTime(_ context.Context, args map[string]any) (any, error) {
	if tz, ok := args["timezone_name"]; ok {
		name, _ := tz.(string)
		if name != "" && name != "UTC" {
			return nil, fmt.Errorf("timezone %q not supported, only UTC", name)
		}
	}
	return time.Now().UTC().Format(time.RFC3339Nano), nil
}

func echo(_ context.Context, args map[string]any) (any, error) {
	message, ok := args["message"].(string)
	if !ok {
		return nil, fmt.Errorf("message must be a string")
	}
	return message, nil
}

func calculateTool(_ context.Context, args map[string]any) (any, error) {
	expression, ok := args["expression"].(string)
	if !ok {
		return nil, fmt.Errorf("expression must be a string")
	}
	return Calculate(expression)
}
