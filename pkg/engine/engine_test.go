package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentfold/agentfold/pkg/llm"
	"github.com/agentfold/agentfold/pkg/store"
)

// ===== In-memory event store =====

// memoryStore implements EventStore for tests: per-stream slices with
// the same optimistic concurrency semantics as Message DB.
type memoryStore struct {
	mu      sync.Mutex
	streams map[string][]store.Message
	global  int64

	// appendErr, when set, fails the next append.
	appendErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{streams: make(map[string][]store.Message)}
}

func (m *memoryStore) Append(ctx context.Context, streamName, kind string, data, metadata any) (int64, error) {
	return m.append(ctx, streamName, kind, data, metadata, nil)
}

func (m *memoryStore) AppendExpected(ctx context.Context, streamName, kind string, data, metadata any, expectedVersion int64) (int64, error) {
	return m.append(ctx, streamName, kind, data, metadata, &expectedVersion)
}

func (m *memoryStore) append(_ context.Context, streamName, kind string, data, metadata any, expectedVersion *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		err := m.appendErr
		m.appendErr = nil
		return 0, err
	}

	current := int64(len(m.streams[streamName])) - 1
	if expectedVersion != nil && *expectedVersion != current {
		return 0, &store.ConcurrencyError{
			StreamName:      streamName,
			ExpectedVersion: *expectedVersion,
			ActualVersion:   current,
		}
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	var rawMeta json.RawMessage
	if metadata != nil {
		rawMeta, err = json.Marshal(metadata)
		if err != nil {
			return 0, err
		}
	}

	position := current + 1
	m.global++
	m.streams[streamName] = append(m.streams[streamName], store.Message{
		ID:             fmt.Sprintf("msg-%d", m.global),
		StreamName:     streamName,
		Kind:           kind,
		Position:       position,
		GlobalPosition: m.global,
		Data:           rawData,
		Metadata:       rawMeta,
		Time:           time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC).Add(time.Duration(m.global) * time.Second),
	})
	return position, nil
}

func (m *memoryStore) Read(_ context.Context, streamName string, fromPosition int64, batchSize int) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Message
	for _, msg := range m.streams[streamName] {
		if msg.Position >= fromPosition {
			out = append(out, msg)
			if len(out) == batchSize {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryStore) ReadAll(ctx context.Context, streamName string, fromPosition int64) ([]store.Message, error) {
	return m.Read(ctx, streamName, fromPosition, int(^uint(0)>>1))
}

func (m *memoryStore) StreamVersion(_ context.Context, streamName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.streams[streamName])) - 1, nil
}

// kinds returns the event kind sequence of a stream.
func (m *memoryStore) kinds(streamName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.streams[streamName]))
	for _, msg := range m.streams[streamName] {
		out = append(out, msg.Kind)
	}
	return out
}

// ===== Scripted LLM client =====

type scriptedCall struct {
	response *llm.Response
	err      error
}

// scriptedLLM replays a fixed sequence of responses and records the
// context it was called with.
type scriptedLLM struct {
	mu       sync.Mutex
	script   []scriptedCall
	contexts [][]llm.Message
	prompts  []string
	decls    [][]llm.ToolDeclaration
}

func (s *scriptedLLM) Call(_ context.Context, messages []llm.Message, tools []llm.ToolDeclaration, systemPrompt string) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	s.contexts = append(s.contexts, copied)
	s.prompts = append(s.prompts, systemPrompt)
	s.decls = append(s.decls, tools)

	if len(s.script) == 0 {
		return nil, &llm.APIError{Provider: "scripted", Err: fmt.Errorf("script exhausted")}
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next.response, next.err
}

func (s *scriptedLLM) ModelName() string { return "scripted-model" }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

func textResponse(text string) scriptedCall {
	return scriptedCall{response: &llm.Response{
		Text:      text,
		ModelName: "scripted-model",
		Usage:     llm.TokenUsage{Input: 10, Output: 5, Total: 15},
	}}
}

func toolResponse(calls ...llm.ToolCall) scriptedCall {
	return scriptedCall{response: &llm.Response{
		ToolCalls: calls,
		ModelName: "scripted-model",
		Usage:     llm.TokenUsage{Input: 10, Output: 5, Total: 15},
	}}
}

func failureCall(err error) scriptedCall {
	return scriptedCall{err: err}
}
