package projection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/store"
)

// ===== Test helpers =====

const testStream = "agent:v0-7f6b44d2-9c1a-4e5d-8a3b-2f1e0d9c8b7a"

var testBase = time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

// env builds an envelope at the next position with the given payload
// and optional metadata. Positions are assigned by index.
func env(t *testing.T, position int64, kind string, data any, meta *event.Metadata) event.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", kind, err)
	}
	var rawMeta json.RawMessage
	if meta != nil {
		rawMeta, err = json.Marshal(meta)
		if err != nil {
			t.Fatalf("marshal %s metadata: %v", kind, err)
		}
	}
	return event.Envelope{
		ID:         store.GenerateThreadID(),
		StreamName: testStream,
		Kind:       kind,
		Position:   position,
		Data:       raw,
		Metadata:   rawMeta,
		Time:       testBase.Add(time.Duration(position) * time.Second),
	}
}

func sessionStarted(t *testing.T, pos int64) event.Envelope {
	return env(t, pos, event.KindSessionStarted, event.SessionStarted{
		ThreadID: "7f6b44d2-9c1a-4e5d-8a3b-2f1e0d9c8b7a",
	}, nil)
}

func userMsg(t *testing.T, pos int64, text string) event.Envelope {
	return env(t, pos, event.KindUserMessageAdded, event.UserMessage{
		Message:   text,
		Timestamp: testBase.Format(time.RFC3339Nano),
	}, nil)
}

func llmResponse(t *testing.T, pos int64, text string, calls ...event.ToolCall) event.Envelope {
	if calls == nil {
		calls = []event.ToolCall{}
	}
	return env(t, pos, event.KindLLMResponseReceived, event.LLMResponse{
		ResponseText: text,
		ToolCalls:    calls,
		ModelName:    "claude-sonnet-4-5",
		TokenUsage:   event.TokenUsage{Input: 10, Output: 5, Total: 15},
	}, nil)
}

func toolCompleted(t *testing.T, pos int64, callID, name string, result any) event.Envelope {
	return env(t, pos, event.KindToolExecutionCompleted, event.ToolExecutionCompleted{
		ToolName:        name,
		Result:          result,
		ExecutionTimeMs: 1.5,
	}, &event.Metadata{ToolCallID: callID})
}

func toolFailed(t *testing.T, pos int64, callID, name, errMsg string) event.Envelope {
	return env(t, pos, event.KindToolExecutionFailed, event.ToolExecutionFailed{
		ToolName:     name,
		ErrorMessage: errMsg,
	}, &event.Metadata{ToolCallID: callID})
}

func sessionCompleted(t *testing.T, pos int64, reason string) event.Envelope {
	return env(t, pos, event.KindSessionCompleted, event.SessionCompleted{
		CompletionReason: reason,
	}, nil)
}
