package engine

import "fmt"

// MaxIterationsError reports a processing pass that hit its iteration
// cap before the session reached a terminal event. The engine writes
// SessionCompleted{timeout} before returning this.
type MaxIterationsError struct {
	ThreadID   string
	Iterations int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("processing exceeded %d iterations for thread %s", e.Iterations, e.ThreadID)
}

// ProcessingError wraps unrecoverable engine failures, typically store
// writes that could not complete.
type ProcessingError struct {
	ThreadID string
	Op       string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s for thread %s: %v", e.Op, e.ThreadID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
