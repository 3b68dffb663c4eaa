package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
	"github.com/agentfold/agentfold/pkg/tools"
)

// executeToolStep runs every pending tool call in order. Each call is
// bracketed by events: ToolExecutionRequested before the invocation,
// then ToolExecutionCompleted or ToolExecutionFailed, all carrying the
// originating tool_call_id and ordinal in metadata. The step is not
// atomic; a crash mid-step leaves requests without completions, and
// the pending projection picks those up on the next pass.
func (e *Engine) executeToolStep(ctx context.Context, streamName string, events []event.Envelope) error {
	ctx, span := e.tracer.Start(ctx, "engine.tool_step")
	defer span.End()

	pending := projection.PendingToolCalls(events)
	span.SetAttributes(attribute.Int("agent.pending_tool_calls", len(pending)))
	if len(pending) == 0 {
		e.log.Warn("Tool step with no pending calls", "stream_name", streamName)
		return nil
	}

	for i, call := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		index := i
		meta := event.Metadata{ToolCallID: call.ID, ToolIndex: &index}

		requested := event.ToolExecutionRequested{ToolName: call.Name, Arguments: call.Arguments}
		if _, err := e.store.Append(ctx, streamName, event.KindToolExecutionRequested, requested, meta); err != nil {
			return err
		}

		result, err := tools.Execute(ctx, e.registry, call.Name, call.Arguments)
		if err != nil {
			// Unknown tool: the call still has to resolve, otherwise the
			// pending projection would retry it forever.
			failed, buildErr := event.NewToolExecutionFailed(call.Name, err.Error(), 0)
			if buildErr != nil {
				return buildErr
			}
			if _, appendErr := e.store.Append(ctx, streamName, event.KindToolExecutionFailed, failed, meta); appendErr != nil {
				return appendErr
			}
			e.log.Warn("Unknown tool requested",
				"stream_name", streamName,
				"tool_name", call.Name,
				"tool_call_id", call.ID)
			continue
		}

		if result.Success {
			completed, buildErr := event.NewToolExecutionCompleted(call.Name, result.Result, result.ExecutionTimeMs)
			if buildErr != nil {
				return buildErr
			}
			if _, appendErr := e.store.Append(ctx, streamName, event.KindToolExecutionCompleted, completed, meta); appendErr != nil {
				return appendErr
			}
			e.log.Debug("Tool executed",
				"stream_name", streamName,
				"tool_name", call.Name,
				"tool_call_id", call.ID,
				"duration_ms", result.ExecutionTimeMs)
			continue
		}

		failed, buildErr := event.NewToolExecutionFailed(call.Name, result.Error, 0)
		if buildErr != nil {
			return buildErr
		}
		if _, appendErr := e.store.Append(ctx, streamName, event.KindToolExecutionFailed, failed, meta); appendErr != nil {
			return appendErr
		}
		e.log.Warn("Tool execution failed",
			"stream_name", streamName,
			"tool_name", call.Name,
			"tool_call_id", call.ID,
			"error", result.Error)
	}
	return nil
}
