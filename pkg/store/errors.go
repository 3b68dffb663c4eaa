package store

import (
	"fmt"
	"strconv"
	"strings"
)

// ConcurrencyError is returned when an append's expected version does
// not match the current stream head. It is an expected error: callers
// re-read the stream and decide whether to retry.
type ConcurrencyError struct {
	StreamName      string
	ExpectedVersion int64
	// ActualVersion is the stream version reported by Message DB, or -2
	// when it could not be parsed from the error message.
	ActualVersion int64
}

func (e *ConcurrencyError) Error() string {
	if e.ActualVersion >= -1 {
		return fmt.Sprintf("concurrency conflict on stream %q: expected version %d, actual %d",
			e.StreamName, e.ExpectedVersion, e.ActualVersion)
	}
	return fmt.Sprintf("concurrency conflict on stream %q: expected version %d", e.StreamName, e.ExpectedVersion)
}

// StoreError wraps any database failure that is not a concurrency
// conflict. Fatal to the current processing pass.
type StoreError struct {
	Op  string // "append", "read", "health"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// wrongVersionMarker is the fragment Message DB's write_message raises
// on an optimistic concurrency violation.
const wrongVersionMarker = "Wrong expected version"

// isWrongVersion reports whether a database error text is Message DB's
// OCC violation, and extracts the actual stream version when present.
// Format: "Wrong expected version: {expected} (Stream: {stream}, Stream Version: {actual})"
func isWrongVersion(msg string) (actual int64, ok bool) {
	if !strings.Contains(msg, wrongVersionMarker) {
		return -2, false
	}
	if _, after, found := strings.Cut(msg, "Stream Version:"); found {
		v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(after), ")"))
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return -2, true
}
