package api

import (
	"encoding/json"
	"time"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
)

// CreateSessionRequest starts a new session with an initial message.
type CreateSessionRequest struct {
	Message string `json:"message" binding:"required"`
}

// PostMessageRequest appends a follow-up message to a session.
type PostMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SessionResponse is the JSON shape of a projected session state.
type SessionResponse struct {
	ThreadID         string     `json:"thread_id"`
	Status           string     `json:"status"`
	UserMessages     int        `json:"user_messages"`
	LLMCalls         int        `json:"llm_calls"`
	ToolCalls        int        `json:"tool_calls"`
	Errors           int        `json:"errors"`
	StartedAt        time.Time  `json:"started_at"`
	LastActivityAt   time.Time  `json:"last_activity_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CompletionReason string     `json:"completion_reason,omitempty"`
	DurationSeconds  float64    `json:"duration_seconds"`
}

func sessionResponse(state projection.SessionState) SessionResponse {
	return SessionResponse{
		ThreadID:         state.ThreadID,
		Status:           string(state.Status),
		UserMessages:     state.UserMessageCount,
		LLMCalls:         state.LLMCallCount,
		ToolCalls:        state.ToolCallCount,
		Errors:           state.ErrorCount,
		StartedAt:        state.StartedAt,
		LastActivityAt:   state.LastActivityAt,
		EndedAt:          state.EndedAt,
		CompletionReason: state.CompletionReason,
		DurationSeconds:  state.Duration().Seconds(),
	}
}

// EventResponse is the JSON shape of one stream event.
type EventResponse struct {
	ID             string         `json:"id"`
	Position       int64          `json:"position"`
	GlobalPosition int64          `json:"global_position"`
	Kind           string         `json:"kind"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Time           time.Time      `json:"time"`
}

func eventResponse(ev event.Envelope) EventResponse {
	resp := EventResponse{
		ID:             ev.ID,
		Position:       ev.Position,
		GlobalPosition: ev.GlobalPosition,
		Kind:           ev.Kind,
		Data:           ev.DataMap(),
		Time:           ev.Time,
	}
	if len(ev.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(ev.Metadata, &meta); err == nil && len(meta) > 0 {
			resp.Metadata = meta
		}
	}
	return resp
}

// SessionListResponse pages recent sessions.
type SessionListResponse struct {
	Threads []string `json:"threads"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
