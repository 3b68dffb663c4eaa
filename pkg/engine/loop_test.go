package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/llm"
	"github.com/agentfold/agentfold/pkg/projection"
	"github.com/agentfold/agentfold/pkg/store"
	"github.com/agentfold/agentfold/pkg/tools"
)

func newTestEngine(t *testing.T, script ...scriptedCall) (*Engine, *memoryStore, *scriptedLLM) {
	t.Helper()
	mem := newMemoryStore()
	client := &scriptedLLM{script: script}
	eng, err := New(mem, client, tools.NewBuiltinRegistry(), Options{})
	require.NoError(t, err)
	return eng, mem, client
}

func TestProcessThread_SimpleQuestionAnswer(t *testing.T) {
	eng, mem, client := newTestEngine(t, textResponse("The answer is 4."))

	threadID, err := eng.StartSession(context.Background(), "What is 2+2?")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	// A text-only response ends the agent's turn; the session stays
	// open for follow-up messages.
	assert.Equal(t, projection.StatusActive, state.Status)
	assert.Equal(t, 1, state.UserMessageCount)
	assert.Equal(t, 1, state.LLMCallCount)
	assert.Equal(t, 0, state.ToolCallCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		event.KindSessionStarted,
		event.KindUserMessageAdded,
		event.KindLLMResponseReceived,
	}, mem.kinds(streamName))

	require.Equal(t, 1, client.callCount())
	require.Len(t, client.contexts[0], 1)
	assert.Equal(t, llm.RoleUser, client.contexts[0][0].Role)
	assert.Equal(t, "What is 2+2?", client.contexts[0][0].Text)
	assert.Equal(t, llm.DefaultSystemPrompt, client.prompts[0])
	assert.NotEmpty(t, client.decls[0])
}

func TestProcessThread_ToolChain(t *testing.T) {
	eng, mem, client := newTestEngine(t,
		toolResponse(
			llm.ToolCall{ID: "call_1", Name: "calculate", Arguments: map[string]any{"expression": "6*7"}},
			llm.ToolCall{ID: "call_2", Name: "echo", Arguments: map[string]any{"message": "done"}},
		),
		textResponse("42, and your echo came back."),
	)

	threadID, err := eng.StartSession(context.Background(), "Compute 6*7 and echo done")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	assert.Equal(t, 2, state.LLMCallCount)
	assert.Equal(t, 2, state.ToolCallCount)
	assert.Equal(t, 0, state.ErrorCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		event.KindSessionStarted,
		event.KindUserMessageAdded,
		event.KindLLMResponseReceived,
		event.KindToolExecutionRequested,
		event.KindToolExecutionCompleted,
		event.KindToolExecutionRequested,
		event.KindToolExecutionCompleted,
		event.KindLLMResponseReceived,
	}, mem.kinds(streamName))

	// Tool events carry the originating call id and ordinal.
	messages, err := mem.ReadAll(context.Background(), streamName, 0)
	require.NoError(t, err)
	envelopes, err := event.FromMessages(messages)
	require.NoError(t, err)

	first := envelopes[3].Meta()
	assert.Equal(t, "call_1", first.ToolCallID)
	require.NotNil(t, first.ToolIndex)
	assert.Equal(t, 0, *first.ToolIndex)

	second := envelopes[5].Meta()
	assert.Equal(t, "call_2", second.ToolCallID)
	require.NotNil(t, second.ToolIndex)
	assert.Equal(t, 1, *second.ToolIndex)

	// The second LLM call sees the tool results in its context.
	require.Equal(t, 2, client.callCount())
	secondContext := client.contexts[1]
	require.Len(t, secondContext, 4)
	assert.Equal(t, llm.RoleTool, secondContext[2].Role)
	assert.Equal(t, "call_1", secondContext[2].ToolCallID)
	assert.Equal(t, "42", secondContext[2].Text)
	assert.Equal(t, llm.RoleTool, secondContext[3].Role)
	assert.Equal(t, "done", secondContext[3].Text)
}

func TestProcessThread_RetriesAreEphemeral(t *testing.T) {
	eng, mem, _ := newTestEngine(t,
		failureCall(&llm.APIError{Provider: "scripted", Err: errors.New("rate limited")}),
		failureCall(&llm.ResponseError{Provider: "scripted", Reason: "garbled"}),
		textResponse("Recovered."),
	)

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LLMCallCount)
	assert.Equal(t, 0, state.ErrorCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	// No failure events between retries.
	assert.Equal(t, []string{
		event.KindSessionStarted,
		event.KindUserMessageAdded,
		event.KindLLMResponseReceived,
	}, mem.kinds(streamName))

	messages, err := mem.ReadAll(context.Background(), streamName, 0)
	require.NoError(t, err)
	envelopes, err := event.FromMessages(messages)
	require.NoError(t, err)
	meta := envelopes[2].Meta()
	require.NotNil(t, meta.RetryCount)
	assert.Equal(t, 2, *meta.RetryCount)
}

func TestProcessThread_ExhaustedRetriesWriteFailureEvent(t *testing.T) {
	// Every call fails, so each LLM step burns its budget, appends
	// LLMCallFailed, and the loop spins until the iteration cap.
	eng, mem, client := newTestEngine(t)
	eng.maxIterations = 3

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.Error(t, err)
	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Iterations)

	// 3 iterations x (1 initial + 2 retries) ephemeral calls.
	assert.Equal(t, 9, client.callCount())

	assert.Equal(t, projection.StatusFailed, state.Status)
	assert.Equal(t, event.CompletionTimeout, state.CompletionReason)
	assert.Equal(t, 3, state.ErrorCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	kinds := mem.kinds(streamName)
	assert.Equal(t, event.KindSessionCompleted, kinds[len(kinds)-1])

	messages, err := mem.ReadAll(context.Background(), streamName, 0)
	require.NoError(t, err)
	envelopes, err := event.FromMessages(messages)
	require.NoError(t, err)
	failed, err := event.DecodePayload[event.LLMCallFailed](envelopes[2])
	require.NoError(t, err)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Contains(t, failed.ErrorMessage, "script exhausted")
}

func TestProcessThread_NonRetriableErrorSkipsRetries(t *testing.T) {
	eng, mem, client := newTestEngine(t,
		failureCall(errors.New("misconfigured adapter")),
		textResponse("second wind"),
	)

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	// One failed call without retries, then the loop routes back to
	// another LLM step which succeeds.
	assert.Equal(t, 2, client.callCount())
	assert.Equal(t, 1, state.ErrorCount)
	assert.Equal(t, 1, state.LLMCallCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		event.KindSessionStarted,
		event.KindUserMessageAdded,
		event.KindLLMCallFailed,
		event.KindLLMResponseReceived,
	}, mem.kinds(streamName))
}

func TestProcessThread_UnknownToolResolvesAsFailure(t *testing.T) {
	eng, mem, _ := newTestEngine(t,
		toolResponse(llm.ToolCall{ID: "call_1", Name: "launch_missiles", Arguments: map[string]any{}}),
		textResponse("That tool does not exist."),
	)

	threadID, err := eng.StartSession(context.Background(), "do something")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	assert.Equal(t, 1, state.ErrorCount)
	assert.Equal(t, 0, state.ToolCallCount)

	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		event.KindSessionStarted,
		event.KindUserMessageAdded,
		event.KindLLMResponseReceived,
		event.KindToolExecutionRequested,
		event.KindToolExecutionFailed,
		event.KindLLMResponseReceived,
	}, mem.kinds(streamName))
}

func TestProcessThread_ToolFailureFeedsBackToModel(t *testing.T) {
	eng, _, client := newTestEngine(t,
		toolResponse(llm.ToolCall{ID: "call_1", Name: "calculate", Arguments: map[string]any{"expression": "1/0"}}),
		textResponse("You cannot divide by zero."),
	)

	threadID, err := eng.StartSession(context.Background(), "compute 1/0")
	require.NoError(t, err)

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.ErrorCount)

	require.Equal(t, 2, client.callCount())
	secondContext := client.contexts[1]
	last := secondContext[len(secondContext)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Contains(t, last.Text, "division by zero")
}

func TestProcessThread_TerminationRequestStopsLoop(t *testing.T) {
	eng, mem, client := newTestEngine(t)

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)
	require.NoError(t, eng.RequestTermination(context.Background(), threadID, "user_requested"))

	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	assert.Equal(t, 0, client.callCount())
	assert.Equal(t, projection.StatusTerminated, state.Status)

	// Writing the SessionCompleted record is the caller's move.
	require.NoError(t, eng.TerminateSession(context.Background(), threadID, event.CompletionUserTerminated))
	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)
	kinds := mem.kinds(streamName)
	assert.Equal(t, event.KindSessionCompleted, kinds[len(kinds)-1])
}

func TestProcessThread_Cancellation(t *testing.T) {
	eng, _, client := newTestEngine(t, textResponse("never sent"))

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := eng.ProcessThread(ctx, threadID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.callCount())
	// The final state is still readable after cancellation.
	assert.Equal(t, projection.StatusActive, state.Status)
}

func TestProcessThread_EmptyStreamIsAnError(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.ProcessThread(context.Background(), "7f6b44d2-9c1a-4e5d-8a3b-2f1e0d9c8b7a")
	require.Error(t, err)
	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Err.Error(), "no events")
}

func TestProcessThread_MultiTurnConversation(t *testing.T) {
	eng, _, client := newTestEngine(t,
		textResponse("Hi there."),
		textResponse("Still here."),
	)

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	_, err = eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	require.NoError(t, eng.AddUserMessage(context.Background(), threadID, "are you there?"))
	state, err := eng.ProcessThread(context.Background(), threadID)
	require.NoError(t, err)

	assert.Equal(t, 2, state.UserMessageCount)
	assert.Equal(t, 2, state.LLMCallCount)

	// The second pass replays the whole conversation.
	require.Equal(t, 2, client.callCount())
	secondContext := client.contexts[1]
	require.Len(t, secondContext, 3)
	assert.Equal(t, "hello", secondContext[0].Text)
	assert.Equal(t, "Hi there.", secondContext[1].Text)
	assert.Equal(t, "are you there?", secondContext[2].Text)
}

func TestProcessThread_ReadsDrainLongBacklogs(t *testing.T) {
	eng, mem, _ := newTestEngine(t)

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)
	streamName, err := eng.streamName(threadID)
	require.NoError(t, err)

	// Grow the stream past one read batch; a single-batch read would
	// hand the loop a truncated history with a stale last event.
	extra := store.DefaultBatchSize + 5
	for i := 0; i < extra; i++ {
		_, err := mem.Append(context.Background(), streamName, event.KindUserMessageAdded,
			map[string]any{"message": "backlog"}, nil)
		require.NoError(t, err)
	}

	envelopes, err := eng.readFrom(context.Background(), streamName, 0)
	require.NoError(t, err)
	require.Len(t, envelopes, extra+2)
	assert.Equal(t, event.KindUserMessageAdded, envelopes[len(envelopes)-1].Kind)
	assert.Equal(t, int64(extra+1), envelopes[len(envelopes)-1].Position)
}

func TestProcessThread_StoreFailureSurfaces(t *testing.T) {
	eng, mem, _ := newTestEngine(t, textResponse("hi"))

	threadID, err := eng.StartSession(context.Background(), "hello")
	require.NoError(t, err)

	mem.appendErr = fmt.Errorf("connection lost")
	_, err = eng.ProcessThread(context.Background(), threadID)
	require.Error(t, err)
	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "llm step", procErr.Op)
}
