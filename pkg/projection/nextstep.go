package projection

import "github.com/agentfold/agentfold/pkg/event"

// Step is the action the engine takes next.
type Step string

const (
	StepLLMCall       Step = "llm_call"
	StepToolExecution Step = "tool_execution"
	StepTermination   Step = "termination"
)

// NextStep decides the engine's next action from the last event, with
// one tie-breaker: unresolved tool calls pull the machine back to tool
// execution so an assistant turn cannot end mid-tool-chain.
//
// An empty stream and unknown kinds both default to an LLM call, which
// keeps the loop making forward progress. Retry budgets are an engine
// concern, not a projection concern: LLMCallFailed still routes to
// another LLM call.
func NextStep(events []event.Envelope) Step {
	if len(events) == 0 {
		return StepLLMCall
	}

	last := events[len(events)-1]
	switch last.Kind {
	case event.KindUserMessageAdded:
		return StepLLMCall

	case event.KindLLMResponseReceived:
		if HasPendingToolCalls(events) {
			return StepToolExecution
		}
		return StepTermination

	case event.KindToolExecutionCompleted, event.KindToolExecutionFailed:
		if HasPendingToolCalls(events) {
			return StepToolExecution
		}
		return StepLLMCall

	case event.KindLLMCallFailed:
		return StepLLMCall

	case event.KindSessionTerminationRequested, event.KindSessionCompleted:
		return StepTermination

	default:
		return StepLLMCall
	}
}
