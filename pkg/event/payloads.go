package event

import (
	"fmt"
	"strings"
	"time"
)

// ToolCall is one tool invocation requested inside an LLMResponse.
// IDs are unique within a response and are referenced by the metadata
// of the matching ToolExecution* events.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TokenUsage records token counts for one LLM call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// SessionStarted is the first event of every stream (position 0).
type SessionStarted struct {
	ThreadID       string         `json:"thread_id"`
	InitialContext map[string]any `json:"initial_context,omitempty"`
}

// NewSessionStarted validates and builds a SessionStarted payload.
func NewSessionStarted(threadID string) (SessionStarted, error) {
	if strings.TrimSpace(threadID) == "" {
		return SessionStarted{}, fmt.Errorf("thread id cannot be empty")
	}
	return SessionStarted{ThreadID: threadID}, nil
}

// UserMessage is the payload of UserMessageAdded.
type UserMessage struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // ISO-8601
}

// NewUserMessage validates the message text and stamps it with the
// given instant in RFC 3339 UTC.
func NewUserMessage(message string, at time.Time) (UserMessage, error) {
	if strings.TrimSpace(message) == "" {
		return UserMessage{}, fmt.Errorf("user message cannot be empty")
	}
	return UserMessage{
		Message:   message,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}, nil
}

// LLMResponse is the payload of LLMResponseReceived.
type LLMResponse struct {
	ResponseText string     `json:"response_text"`
	ToolCalls    []ToolCall `json:"tool_calls"`
	ModelName    string     `json:"model_name"`
	TokenUsage   TokenUsage `json:"token_usage"`
}

// NewLLMResponse validates and builds an LLMResponse payload. A
// response with neither text nor tool calls is malformed.
func NewLLMResponse(text string, toolCalls []ToolCall, modelName string, usage TokenUsage) (LLMResponse, error) {
	if strings.TrimSpace(modelName) == "" {
		return LLMResponse{}, fmt.Errorf("model name cannot be empty")
	}
	if strings.TrimSpace(text) == "" && len(toolCalls) == 0 {
		return LLMResponse{}, fmt.Errorf("LLM response must have text or tool calls")
	}
	for i, tc := range toolCalls {
		if strings.TrimSpace(tc.ID) == "" {
			return LLMResponse{}, fmt.Errorf("tool call %d has empty id", i)
		}
		if strings.TrimSpace(tc.Name) == "" {
			return LLMResponse{}, fmt.Errorf("tool call %q has empty name", tc.ID)
		}
	}
	if toolCalls == nil {
		toolCalls = []ToolCall{}
	}
	return LLMResponse{
		ResponseText: text,
		ToolCalls:    toolCalls,
		ModelName:    modelName,
		TokenUsage:   usage,
	}, nil
}

// LLMCallFailed records an LLM call that failed after exhausting its
// retry budget.
type LLMCallFailed struct {
	ErrorMessage string `json:"error_message"`
	RetryCount   int    `json:"retry_count"`
}

// NewLLMCallFailed validates and builds an LLMCallFailed payload.
func NewLLMCallFailed(errorMessage string, retryCount int) (LLMCallFailed, error) {
	if retryCount < 0 {
		return LLMCallFailed{}, fmt.Errorf("retry count must be >= 0, got %d", retryCount)
	}
	return LLMCallFailed{ErrorMessage: errorMessage, RetryCount: retryCount}, nil
}

// ToolExecutionRequested is written once per tool call before the tool
// runs. Its metadata carries tool_call_id and tool_index.
type ToolExecutionRequested struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolExecutionCompleted records a successful tool run.
type ToolExecutionCompleted struct {
	ToolName        string  `json:"tool_name"`
	Result          any     `json:"result"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
}

// NewToolExecutionCompleted validates and builds the payload.
func NewToolExecutionCompleted(toolName string, result any, executionTimeMs float64) (ToolExecutionCompleted, error) {
	if strings.TrimSpace(toolName) == "" {
		return ToolExecutionCompleted{}, fmt.Errorf("tool name cannot be empty")
	}
	if executionTimeMs < 0 {
		return ToolExecutionCompleted{}, fmt.Errorf("execution time must be >= 0, got %v", executionTimeMs)
	}
	return ToolExecutionCompleted{ToolName: toolName, Result: result, ExecutionTimeMs: executionTimeMs}, nil
}

// ToolExecutionFailed records a tool run that raised or was rejected.
type ToolExecutionFailed struct {
	ToolName     string `json:"tool_name"`
	ErrorMessage string `json:"error_message"`
	RetryCount   int    `json:"retry_count"`
}

// NewToolExecutionFailed validates and builds the payload.
func NewToolExecutionFailed(toolName, errorMessage string, retryCount int) (ToolExecutionFailed, error) {
	if strings.TrimSpace(toolName) == "" {
		return ToolExecutionFailed{}, fmt.Errorf("tool name cannot be empty")
	}
	if retryCount < 0 {
		return ToolExecutionFailed{}, fmt.Errorf("retry count must be >= 0, got %d", retryCount)
	}
	return ToolExecutionFailed{ToolName: toolName, ErrorMessage: errorMessage, RetryCount: retryCount}, nil
}

// SessionTerminationRequested signals an explicit user or system stop.
type SessionTerminationRequested struct {
	Reason string `json:"reason,omitempty"`
}

// SessionCompleted is the terminal event of a stream.
type SessionCompleted struct {
	CompletionReason string `json:"completion_reason"`
}

// NewSessionCompleted validates the completion reason against the
// allowed set.
func NewSessionCompleted(reason string) (SessionCompleted, error) {
	switch reason {
	case CompletionSuccess, CompletionFailure, CompletionTimeout, CompletionUserTerminated:
		return SessionCompleted{CompletionReason: reason}, nil
	default:
		return SessionCompleted{}, fmt.Errorf("invalid completion reason %q", reason)
	}
}
