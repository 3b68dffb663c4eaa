package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentfold/agentfold/pkg/store"
)

// Envelope is the universal event record read from a stream. Data and
// Metadata are kept as raw JSON so round-trips through the store are
// byte-faithful; typed payloads are decoded on demand.
type Envelope struct {
	ID             string
	StreamName     string
	Kind           string
	Position       int64
	GlobalPosition int64
	Data           json.RawMessage
	Metadata       json.RawMessage // nil when the row has no metadata
	Time           time.Time
}

// FromMessage converts a store row into an envelope.
func FromMessage(m store.Message) (Envelope, error) {
	if m.Kind == "" {
		return Envelope{}, fmt.Errorf("event at position %d has empty kind", m.Position)
	}
	if m.Position < 0 {
		return Envelope{}, fmt.Errorf("event position must be >= 0, got %d", m.Position)
	}
	return Envelope{
		ID:             m.ID,
		StreamName:     m.StreamName,
		Kind:           m.Kind,
		Position:       m.Position,
		GlobalPosition: m.GlobalPosition,
		Data:           m.Data,
		Metadata:       m.Metadata,
		Time:           m.Time,
	}, nil
}

// FromMessages converts a batch of store rows, preserving order.
func FromMessages(msgs []store.Message) ([]Envelope, error) {
	events := make([]Envelope, 0, len(msgs))
	for _, m := range msgs {
		ev, err := FromMessage(m)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodePayload unmarshals an envelope's data into a typed payload.
func DecodePayload[T any](e Envelope) (T, error) {
	var payload T
	if len(e.Data) == 0 {
		return payload, fmt.Errorf("event %s has no data", e.Kind)
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
	}
	return payload, nil
}

// DataMap returns the payload as an opaque map. Used for unknown kinds
// and for display surfaces that do not care about the typed shape.
func (e Envelope) DataMap() map[string]any {
	var m map[string]any
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &m)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}

// Meta decodes the envelope metadata; returns the zero value when the
// event carries none.
func (e Envelope) Meta() Metadata {
	var md Metadata
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &md)
	}
	return md
}

// Metadata is the structured metadata the engine attaches to events it
// writes. All fields are optional.
type Metadata struct {
	ToolCallID string `json:"tool_call_id,omitempty"` // links tool events to the originating tool call
	ToolIndex  *int   `json:"tool_index,omitempty"`   // ordinal within the LLM response's tool_calls
	RetryCount *int   `json:"retry_count,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
}
