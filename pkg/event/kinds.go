// Package event defines the typed event surface over the Message DB
// envelope: kind constants, payload types with invariants enforced at
// construction, and JSON codecs. Unknown kinds read from the store are
// tolerated and surface as envelopes with opaque data.
package event

// Event kinds written to agent streams.
const (
	KindSessionStarted              = "SessionStarted"
	KindUserMessageAdded            = "UserMessageAdded"
	KindLLMResponseReceived         = "LLMResponseReceived"
	KindLLMCallFailed               = "LLMCallFailed"
	KindToolExecutionRequested      = "ToolExecutionRequested"
	KindToolExecutionCompleted      = "ToolExecutionCompleted"
	KindToolExecutionFailed         = "ToolExecutionFailed"
	KindSessionTerminationRequested = "SessionTerminationRequested"
	KindSessionCompleted            = "SessionCompleted"
)

// Completion reasons for SessionCompleted.
const (
	CompletionSuccess        = "success"
	CompletionFailure        = "failure"
	CompletionTimeout        = "timeout"
	CompletionUserTerminated = "user_terminated"
)

// IsTerminalKind reports whether a kind ends a session: its presence as
// the last event routes the next-step projection to termination.
func IsTerminalKind(kind string) bool {
	return kind == KindSessionCompleted || kind == KindSessionTerminationRequested
}
