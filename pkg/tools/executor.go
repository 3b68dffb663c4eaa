package tools

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// ExecutionResult is the structured outcome of one tool run. Exactly
// one of Result and Error is meaningful, selected by Success.
type ExecutionResult struct {
	Success         bool    `json:"success"`
	Result          any     `json:"result,omitempty"`
	Error           string  `json:"error,omitempty"` // "<Type>: <message>"
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	ToolName        string  `json:"tool_name"`
}

// Execute runs a registered tool and reports its outcome. Tool
// failures, including panics inside the tool, become a failed result;
// Execute itself returns an error only for unknown tool names.
// Duration is measured with the monotonic clock.
func Execute(ctx context.Context, registry *Registry, toolName string, args map[string]any) (ExecutionResult, error) {
	tool, err := registry.Get(toolName)
	if err != nil {
		return ExecutionResult{}, err
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	result, err := invoke(ctx, tool, args)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		return ExecutionResult{
			Success:         false,
			Error:           errorLabel(err),
			ExecutionTimeMs: elapsed,
			ToolName:        toolName,
		}, nil
	}
	return ExecutionResult{
		Success:         true,
		Result:          result,
		ExecutionTimeMs: elapsed,
		ToolName:        toolName,
	}, nil
}

// invoke calls the tool function with panics converted to errors.
func invoke(ctx context.Context, tool *Tool, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Fn(ctx, args)
}

// errorLabel renders an error as "<Type>: <message>" so the failure
// class survives serialization into events.
func errorLabel(err error) string {
	msg := err.Error()
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := ""
	if t != nil {
		name = t.Name()
	}
	// errors.New and fmt.Errorf produce unexported wrapper types;
	// label exactly those generically. Any other type keeps its name.
	switch name {
	case "", "errorString", "wrapError", "wrapErrors":
		name = "Error"
	}
	return name + ": " + msg
}
