package llm

import (
	"errors"
	"fmt"
)

// APIError is a transport-level failure: network, authentication, rate
// limit. Retriable by the engine up to its budget.
type APIError struct {
	Provider string
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ResponseError is a malformed or unusable provider response.
// Retriable by the engine up to its budget.
type ResponseError struct {
	Provider string
	Reason   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s returned an invalid response: %s", e.Provider, e.Reason)
}

// Error wraps failures that fit neither taxonomy bucket.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetriable reports whether the engine should spend retry budget on
// the error.
func IsRetriable(err error) bool {
	var apiErr *APIError
	var respErr *ResponseError
	return errors.As(err, &apiErr) || errors.As(err, &respErr)
}
