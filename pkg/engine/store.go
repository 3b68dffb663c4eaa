package engine

import (
	"context"

	"github.com/agentfold/agentfold/pkg/store"
)

// EventStore is the slice of the store client the engine depends on.
// Tests substitute an in-memory implementation.
type EventStore interface {
	// Append writes one message without a version check and returns its
	// position.
	Append(ctx context.Context, streamName, kind string, data, metadata any) (int64, error)

	// AppendExpected writes one message with optimistic concurrency:
	// expectedVersion -1 requires that the stream does not exist yet.
	AppendExpected(ctx context.Context, streamName, kind string, data, metadata any, expectedVersion int64) (int64, error)

	// ReadAll returns the stream from fromPosition onward in position
	// order, draining to the head regardless of backlog length.
	ReadAll(ctx context.Context, streamName string, fromPosition int64) ([]store.Message, error)

	// StreamVersion returns the highest position, or -1 when the stream
	// does not exist.
	StreamVersion(ctx context.Context, streamName string) (int64, error)
}
