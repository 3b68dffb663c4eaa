// Package projection derives read models from event sequences. Every
// projection is a pure function of its input events: no I/O, no clock,
// identical output for identical input. Malformed events are skipped
// rather than failing the whole projection, so a damaged stream still
// yields a usable partial view.
package projection

import (
	"encoding/json"
	"strings"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/llm"
)

// LLMContext maps a stream to the chronological message sequence sent
// to the model. User messages, assistant responses and tool results
// survive; lifecycle events do not.
func LLMContext(events []event.Envelope) []llm.Message {
	messages := make([]llm.Message, 0, len(events))
	for _, ev := range events {
		switch ev.Kind {
		case event.KindUserMessageAdded:
			if m, ok := userMessage(ev); ok {
				messages = append(messages, m)
			}
		case event.KindLLMResponseReceived:
			if m, ok := assistantMessage(ev); ok {
				messages = append(messages, m)
			}
		case event.KindToolExecutionCompleted:
			if m, ok := toolResultMessage(ev); ok {
				messages = append(messages, m)
			}
		case event.KindToolExecutionFailed:
			if m, ok := toolFailureMessage(ev); ok {
				messages = append(messages, m)
			}
		}
	}
	return messages
}

func userMessage(ev event.Envelope) (llm.Message, bool) {
	payload, err := event.DecodePayload[event.UserMessage](ev)
	if err != nil || strings.TrimSpace(payload.Message) == "" {
		return llm.Message{}, false
	}
	return llm.Message{Role: llm.RoleUser, Text: payload.Message}, true
}

func assistantMessage(ev event.Envelope) (llm.Message, bool) {
	payload, err := event.DecodePayload[event.LLMResponse](ev)
	if err != nil {
		return llm.Message{}, false
	}
	calls := make([]llm.ToolCall, 0, len(payload.ToolCalls))
	for _, tc := range payload.ToolCalls {
		if tc.ID == "" || tc.Name == "" {
			continue
		}
		calls = append(calls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	text := payload.ResponseText
	if strings.TrimSpace(text) == "" && len(calls) == 0 {
		return llm.Message{}, false
	}
	msg := llm.Message{Role: llm.RoleAssistant, Text: text}
	if len(calls) > 0 {
		msg.ToolCalls = calls
	}
	return msg, true
}

func toolResultMessage(ev event.Envelope) (llm.Message, bool) {
	payload, err := event.DecodePayload[event.ToolExecutionCompleted](ev)
	if err != nil || payload.ToolName == "" {
		return llm.Message{}, false
	}
	callID := ev.Meta().ToolCallID
	if callID == "" {
		// Old events without linking metadata fall back to the tool
		// name so the result is not silently dropped from context.
		callID = payload.ToolName
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Text:       serializeResult(payload.Result),
		ToolCallID: callID,
		ToolName:   payload.ToolName,
	}, true
}

func toolFailureMessage(ev event.Envelope) (llm.Message, bool) {
	payload, err := event.DecodePayload[event.ToolExecutionFailed](ev)
	if err != nil || payload.ToolName == "" {
		return llm.Message{}, false
	}
	callID := ev.Meta().ToolCallID
	if callID == "" {
		callID = payload.ToolName
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Text:       "Tool execution failed: " + payload.ErrorMessage,
		ToolCallID: callID,
		ToolName:   payload.ToolName,
	}, true
}

// serializeResult renders a tool result for the model. Strings pass
// through untouched; everything else is JSON-encoded.
func serializeResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "null"
	}
	return string(raw)
}

// LastUserMessage returns the text of the most recent user message, or
// "" when the stream has none.
func LastUserMessage(events []event.Envelope) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != event.KindUserMessageAdded {
			continue
		}
		if payload, err := event.DecodePayload[event.UserMessage](events[i]); err == nil {
			return payload.Message
		}
	}
	return ""
}
