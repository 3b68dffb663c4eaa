package projection

import "github.com/agentfold/agentfold/pkg/event"

// PendingToolCalls returns the tool calls from the most recent
// LLMResponseReceived that have not yet been resolved by a matching
// ToolExecutionCompleted or ToolExecutionFailed after that response.
// Resolution is matched on the tool_call_id metadata of the tool
// events. Returns an empty slice when nothing is pending.
func PendingToolCalls(events []event.Envelope) []event.ToolCall {
	idx := lastLLMResponseIndex(events)
	if idx < 0 {
		return []event.ToolCall{}
	}
	payload, err := event.DecodePayload[event.LLMResponse](events[idx])
	if err != nil || len(payload.ToolCalls) == 0 {
		return []event.ToolCall{}
	}

	resolved := make(map[string]bool)
	for _, ev := range events[idx+1:] {
		switch ev.Kind {
		case event.KindToolExecutionCompleted, event.KindToolExecutionFailed:
			if id := ev.Meta().ToolCallID; id != "" {
				resolved[id] = true
			}
		}
	}

	pending := make([]event.ToolCall, 0, len(payload.ToolCalls))
	for _, tc := range payload.ToolCalls {
		if !resolved[tc.ID] {
			pending = append(pending, tc)
		}
	}
	return pending
}

// HasPendingToolCalls reports whether any tool call is unresolved.
func HasPendingToolCalls(events []event.Envelope) bool {
	return len(PendingToolCalls(events)) > 0
}

func lastLLMResponseIndex(events []event.Envelope) int {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == event.KindLLMResponseReceived {
			return i
		}
	}
	return -1
}
