package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
)

// ProcessThread runs the step loop for one thread until the session
// reaches a terminal step or the iteration cap. Reads are incremental:
// each iteration fetches only events past the last seen position and
// folds them into the accumulated history the projections consume.
//
// Cancellation is cooperative: between steps the context is checked
// and the pass returns without starting new work. Hitting the
// iteration cap appends SessionCompleted{timeout} and returns a
// *MaxIterationsError alongside the final state.
func (e *Engine) ProcessThread(ctx context.Context, threadID string) (projection.SessionState, error) {
	streamName, err := e.streamName(threadID)
	if err != nil {
		return projection.SessionState{}, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.process_thread")
	span.SetAttributes(
		attribute.String("agent.thread_id", threadID),
		attribute.String("agent.stream_name", streamName),
	)
	defer span.End()

	log := e.log.With("thread_id", threadID, "stream_name", streamName)
	log.Info("Starting thread processing", "max_iterations", e.maxIterations)

	var events []event.Envelope
	nextPosition := int64(0)
	terminated := false
	iteration := 0

	for iteration < e.maxIterations {
		iteration++

		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "canceled")
			return e.finalState(context.WithoutCancel(ctx), threadID, streamName, err)
		}

		fresh, err := e.readFrom(ctx, streamName, nextPosition)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "read stream", Err: err}
		}
		events = append(events, fresh...)
		if len(fresh) > 0 {
			nextPosition = fresh[len(fresh)-1].Position + 1
		}

		if len(events) == 0 {
			return projection.SessionState{}, &ProcessingError{
				ThreadID: threadID, Op: "read stream",
				Err: fmt.Errorf("no events found in stream %s", streamName),
			}
		}

		step := projection.NextStep(events)
		log.Debug("Determined next step",
			"iteration", iteration,
			"step", string(step),
			"event_count", len(events))

		switch step {
		case projection.StepTermination:
			terminated = true
		case projection.StepLLMCall:
			if err := e.executeLLMStep(ctx, streamName, events); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "llm step", Err: err}
			}
		case projection.StepToolExecution:
			if err := e.executeToolStep(ctx, streamName, events); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "tool step", Err: err}
			}
		}
		if terminated {
			break
		}
	}

	if !terminated {
		log.Error("Exceeded maximum iterations", "iterations", iteration)
		span.SetStatus(codes.Error, "max iterations exceeded")

		timeout, err := event.NewSessionCompleted(event.CompletionTimeout)
		if err == nil {
			if _, err := e.store.Append(ctx, streamName, event.KindSessionCompleted, timeout, nil); err != nil {
				log.Warn("Failed to record timeout completion", "error", err)
			}
		}
		return e.finalState(ctx, threadID, streamName,
			&MaxIterationsError{ThreadID: threadID, Iterations: iteration})
	}

	span.SetAttributes(attribute.Int("agent.iterations", iteration))
	state, err := e.finalState(ctx, threadID, streamName, nil)
	if err == nil {
		log.Info("Thread processing complete",
			"status", string(state.Status),
			"iterations", iteration,
			"llm_calls", state.LLMCallCount,
			"tool_calls", state.ToolCallCount)
	}
	return state, err
}

// finalState re-reads the whole stream and projects the session state;
// cause, when non-nil, is returned alongside the state.
func (e *Engine) finalState(ctx context.Context, threadID, streamName string, cause error) (projection.SessionState, error) {
	messages, err := e.store.ReadAll(ctx, streamName, 0)
	if err != nil {
		return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "read final state", Err: err}
	}
	events, err := event.FromMessages(messages)
	if err != nil {
		return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "decode final state", Err: err}
	}
	state, err := projection.ProjectSessionState(events)
	if err != nil {
		return projection.SessionState{}, &ProcessingError{ThreadID: threadID, Op: "project final state", Err: err}
	}
	return state, cause
}

// readFrom drains the stream to its head starting at fromPosition, so
// a backlog longer than one read batch never truncates the history the
// projections route on.
func (e *Engine) readFrom(ctx context.Context, streamName string, fromPosition int64) ([]event.Envelope, error) {
	messages, err := e.store.ReadAll(ctx, streamName, fromPosition)
	if err != nil {
		return nil, err
	}
	return event.FromMessages(messages)
}
