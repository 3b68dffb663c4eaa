package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/store"
)

// StartSession opens a new session: a fresh thread id, SessionStarted
// appended with expected version -1 so a colliding stream is rejected,
// then the initial user message. Returns the thread id.
func (e *Engine) StartSession(ctx context.Context, initialMessage string) (string, error) {
	threadID := store.GenerateThreadID()
	streamName, err := e.streamName(threadID)
	if err != nil {
		return "", err
	}

	started, err := event.NewSessionStarted(threadID)
	if err != nil {
		return "", err
	}
	if _, err := e.store.AppendExpected(ctx, streamName, event.KindSessionStarted, started, nil, store.NoStreamVersion); err != nil {
		return "", &ProcessingError{ThreadID: threadID, Op: "start session", Err: err}
	}

	if err := e.AddUserMessage(ctx, threadID, initialMessage); err != nil {
		return "", err
	}

	e.log.Info("Session started", "thread_id", threadID, "stream_name", streamName)
	return threadID, nil
}

// AddUserMessage appends a user message to an existing session.
func (e *Engine) AddUserMessage(ctx context.Context, threadID, message string) error {
	streamName, err := e.streamName(threadID)
	if err != nil {
		return err
	}
	payload, err := event.NewUserMessage(message, time.Now())
	if err != nil {
		return err
	}
	if _, err := e.store.Append(ctx, streamName, event.KindUserMessageAdded, payload, nil); err != nil {
		return &ProcessingError{ThreadID: threadID, Op: "add user message", Err: err}
	}
	return nil
}

// RequestTermination appends SessionTerminationRequested; the next
// processing pass routes to termination and completes the session.
func (e *Engine) RequestTermination(ctx context.Context, threadID, reason string) error {
	streamName, err := e.streamName(threadID)
	if err != nil {
		return err
	}
	payload := event.SessionTerminationRequested{Reason: reason}
	if _, err := e.store.Append(ctx, streamName, event.KindSessionTerminationRequested, payload, nil); err != nil {
		return &ProcessingError{ThreadID: threadID, Op: "request termination", Err: err}
	}
	return nil
}

// TerminateSession appends SessionCompleted with the given reason.
// Idempotent: when the stream already ends in SessionCompleted the
// call is a no-op.
func (e *Engine) TerminateSession(ctx context.Context, threadID, reason string) error {
	streamName, err := e.streamName(threadID)
	if err != nil {
		return err
	}

	messages, err := e.store.ReadAll(ctx, streamName, 0)
	if err != nil {
		return &ProcessingError{ThreadID: threadID, Op: "terminate session", Err: err}
	}
	if len(messages) == 0 {
		return fmt.Errorf("no session found for thread %s", threadID)
	}
	if messages[len(messages)-1].Kind == event.KindSessionCompleted {
		e.log.Debug("Session already completed", "thread_id", threadID)
		return nil
	}

	payload, err := event.NewSessionCompleted(reason)
	if err != nil {
		return err
	}
	if _, err := e.store.Append(ctx, streamName, event.KindSessionCompleted, payload, nil); err != nil {
		return &ProcessingError{ThreadID: threadID, Op: "terminate session", Err: err}
	}
	e.log.Info("Session terminated", "thread_id", threadID, "reason", reason)
	return nil
}
