package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Message is a single event row read from a Message DB stream.
type Message struct {
	ID             string
	StreamName     string
	Kind           string
	Position       int64
	GlobalPosition int64
	Data           json.RawMessage
	Metadata       json.RawMessage // nil when the row has no metadata
	Time           time.Time
}

// DefaultBatchSize is the read batch size used when none is given.
const DefaultBatchSize = 1000

// NoStreamVersion is the expected version asserting that a stream does
// not exist yet.
const NoStreamVersion int64 = -1

// Append writes one event to a stream without a concurrency check and
// returns its per-stream position. data and metadata are serialized as
// JSON; a nil metadata writes SQL NULL.
func (c *Client) Append(ctx context.Context, streamName, kind string, data, metadata any) (int64, error) {
	return c.append(ctx, streamName, kind, data, metadata, nil)
}

// AppendExpected writes one event with optimistic concurrency control.
// expectedVersion is the position the caller believes is currently the
// last written, or -1 meaning the stream must not yet exist. A mismatch
// returns *ConcurrencyError.
func (c *Client) AppendExpected(ctx context.Context, streamName, kind string, data, metadata any, expectedVersion int64) (int64, error) {
	return c.append(ctx, streamName, kind, data, metadata, &expectedVersion)
}

func (c *Client) append(ctx context.Context, streamName, kind string, data, metadata any, expectedVersion *int64) (int64, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return 0, &StoreError{Op: "append", Err: fmt.Errorf("failed to serialize data: %w", err)}
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return 0, &StoreError{Op: "append", Err: fmt.Errorf("failed to serialize metadata: %w", err)}
		}
	}

	eventID := uuid.NewString()

	// write_message acquires an advisory lock released on commit, so the
	// whole call runs in one short explicit transaction.
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, &StoreError{Op: "append", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var position int64
	err = tx.QueryRow(ctx,
		`SELECT write_message($1, $2, $3, $4::jsonb, $5::jsonb, $6)`,
		eventID, streamName, kind, dataJSON, metadataJSON, expectedVersion,
	).Scan(&position)
	if err != nil {
		if actual, ok := isWrongVersion(err.Error()); ok {
			expected := int64(-2)
			if expectedVersion != nil {
				expected = *expectedVersion
			}
			return 0, &ConcurrencyError{
				StreamName:      streamName,
				ExpectedVersion: expected,
				ActualVersion:   actual,
			}
		}
		return 0, &StoreError{Op: "append", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &StoreError{Op: "append", Err: err}
	}

	slog.Debug("event appended",
		"stream", streamName, "kind", kind, "position", position, "event_id", eventID)
	return position, nil
}

// Read returns up to batchSize events at or after fromPosition, in
// ascending per-stream position order. batchSize <= 0 uses
// DefaultBatchSize.
func (c *Client) Read(ctx context.Context, streamName string, fromPosition int64, batchSize int) ([]Message, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id, stream_name, type, position, global_position, data, metadata, time
		   FROM get_stream_messages($1, $2, $3)`,
		streamName, fromPosition, batchSize,
	)
	if err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.StreamName, &m.Kind, &m.Position,
			&m.GlobalPosition, &m.Data, &m.Metadata, &m.Time); err != nil {
			return nil, &StoreError{Op: "read", Err: err}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	return messages, nil
}

// ReadAll reads a stream to its head in DefaultBatchSize batches.
func (c *Client) ReadAll(ctx context.Context, streamName string, fromPosition int64) ([]Message, error) {
	var all []Message
	next := fromPosition
	for {
		batch, err := c.Read(ctx, streamName, next, DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < DefaultBatchSize {
			return all, nil
		}
		next = batch[len(batch)-1].Position + 1
	}
}

// StreamVersion returns the position of the last event in a stream, or
// -1 when the stream does not exist.
func (c *Client) StreamVersion(ctx context.Context, streamName string) (int64, error) {
	var version *int64
	err := c.pool.QueryRow(ctx, `SELECT stream_version($1)`, streamName).Scan(&version)
	if err != nil {
		return 0, &StoreError{Op: "read", Err: err}
	}
	if version == nil {
		return -1, nil
	}
	return *version, nil
}

// ListStreams returns the most recently written stream names for a
// category, newest first. Used by the CLI "list" command.
func (c *Client) ListStreams(ctx context.Context, category string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.pool.Query(ctx,
		`SELECT stream_name
		   FROM messages
		  WHERE category(stream_name) = $1
		  GROUP BY stream_name
		  ORDER BY MAX(global_position) DESC
		  LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	defer rows.Close()

	var streams []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &StoreError{Op: "read", Err: err}
		}
		streams = append(streams, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	return streams, nil
}
