package projection

import (
	"fmt"
	"time"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/store"
)

// Status of a session as derived from its stream.
type Status string

const (
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// SessionState is a point-in-time aggregate of one session's stream.
type SessionState struct {
	ThreadID         string
	Status           Status
	UserMessageCount int
	LLMCallCount     int
	ToolCallCount    int
	ErrorCount       int
	StartedAt        time.Time  // zero when SessionStarted is missing
	LastActivityAt   time.Time  // time of the last event
	EndedAt          *time.Time // nil until SessionCompleted
	CompletionReason string     // "" until SessionCompleted
}

// Active reports whether the session can still accept work.
func (s SessionState) Active() bool { return s.Status == StatusActive }

// Duration is the elapsed time from session start to end, or to the
// last activity while the session is open. Zero when start is unknown.
func (s SessionState) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.LastActivityAt
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.IsZero() {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// ProjectSessionState aggregates a stream in a single pass. The status stays
// active until a SessionCompleted event lands, whose completion reason
// decides the final status: success completes, user_terminated
// terminates, failure and timeout fail. A termination request with no
// SessionCompleted after it also resolves to terminated, since the
// session no longer accepts work.
func ProjectSessionState(events []event.Envelope) (SessionState, error) {
	if len(events) == 0 {
		return SessionState{}, fmt.Errorf("cannot compute session state from an empty stream")
	}

	_, _, threadID, err := store.ParseStreamName(events[0].StreamName)
	if err != nil {
		return SessionState{}, fmt.Errorf("invalid stream name on first event: %w", err)
	}

	state := SessionState{
		ThreadID:       threadID,
		Status:         StatusActive,
		LastActivityAt: events[len(events)-1].Time,
	}

	terminationRequested := false
	for _, ev := range events {
		switch ev.Kind {
		case event.KindSessionStarted:
			state.StartedAt = ev.Time
		case event.KindUserMessageAdded:
			state.UserMessageCount++
		case event.KindLLMResponseReceived:
			state.LLMCallCount++
		case event.KindToolExecutionCompleted:
			state.ToolCallCount++
		case event.KindLLMCallFailed, event.KindToolExecutionFailed:
			state.ErrorCount++
		case event.KindSessionTerminationRequested:
			terminationRequested = true
		case event.KindSessionCompleted:
			endedAt := ev.Time
			state.EndedAt = &endedAt
			if payload, err := event.DecodePayload[event.SessionCompleted](ev); err == nil {
				state.CompletionReason = payload.CompletionReason
			}
		}
	}

	switch {
	case state.EndedAt != nil:
		switch state.CompletionReason {
		case event.CompletionSuccess:
			state.Status = StatusCompleted
		case event.CompletionUserTerminated:
			state.Status = StatusTerminated
		default:
			state.Status = StatusFailed
		}
	case terminationRequested:
		state.Status = StatusTerminated
	}
	return state, nil
}
