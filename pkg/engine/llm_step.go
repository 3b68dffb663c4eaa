package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/llm"
	"github.com/agentfold/agentfold/pkg/projection"
)

// executeLLMStep projects the conversation context, calls the model
// with the registry's tool declarations, and appends the outcome.
// Retries are ephemeral: nothing is written between attempts, and only
// retriable failures consume the budget. Exhaustion or a non-retriable
// failure appends LLMCallFailed; the returned error is reserved for
// store writes that could not complete.
func (e *Engine) executeLLMStep(ctx context.Context, streamName string, events []event.Envelope) error {
	ctx, span := e.tracer.Start(ctx, "engine.llm_step")
	defer span.End()

	messages := projection.LLMContext(events)
	declarations := e.toolDeclarations()
	span.SetAttributes(
		attribute.Int("agent.context_messages", len(messages)),
		attribute.Int("agent.tool_declarations", len(declarations)),
	)

	var lastErr error
	retryCount := 0
	for {
		response, err := e.llm.Call(ctx, messages, declarations, e.systemPrompt)
		if err == nil {
			return e.appendLLMResponse(ctx, streamName, response, retryCount)
		}
		lastErr = err

		if !llm.IsRetriable(err) || retryCount >= e.maxRetries {
			break
		}
		retryCount++
		e.log.Warn("LLM call failed, retrying",
			"stream_name", streamName,
			"retry_count", retryCount,
			"error", err)
	}

	e.log.Error("LLM call failed after retries",
		"stream_name", streamName,
		"retry_count", retryCount,
		"error", lastErr)

	failed, err := event.NewLLMCallFailed(lastErr.Error(), retryCount)
	if err != nil {
		return err
	}
	meta := event.Metadata{RetryCount: &retryCount, ErrorType: errorType(lastErr)}
	if _, err := e.store.Append(ctx, streamName, event.KindLLMCallFailed, failed, meta); err != nil {
		return err
	}
	return nil
}

func (e *Engine) appendLLMResponse(ctx context.Context, streamName string, response *llm.Response, retryCount int) error {
	calls := make([]event.ToolCall, 0, len(response.ToolCalls))
	for _, tc := range response.ToolCalls {
		calls = append(calls, event.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	payload, err := event.NewLLMResponse(response.Text, calls, response.ModelName, event.TokenUsage{
		Input:  response.Usage.Input,
		Output: response.Usage.Output,
		Total:  response.Usage.Total,
	})
	if err != nil {
		return err
	}

	meta := event.Metadata{RetryCount: &retryCount}
	if _, err := e.store.Append(ctx, streamName, event.KindLLMResponseReceived, payload, meta); err != nil {
		return err
	}
	e.log.Info("LLM response recorded",
		"stream_name", streamName,
		"model", response.ModelName,
		"tool_calls", len(calls),
		"total_tokens", response.Usage.Total)
	return nil
}

// toolDeclarations renders the registry for the adapter; nil when the
// registry is empty so adapters omit the tools block entirely.
func (e *Engine) toolDeclarations() []llm.ToolDeclaration {
	registered := e.registry.List()
	if len(registered) == 0 {
		return nil
	}
	declarations := make([]llm.ToolDeclaration, 0, len(registered))
	for _, t := range registered {
		declarations = append(declarations, llm.ToolDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return declarations
}

func errorType(err error) string {
	switch err.(type) {
	case *llm.APIError:
		return "api_error"
	case *llm.ResponseError:
		return "response_error"
	default:
		return "error"
	}
}
