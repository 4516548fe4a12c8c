package core

import "context"

// Status classifies the outcome of a single holder invocation.
type Status string

const (
	// StatusCompleted signals the holder finished its unit of work. From an
	// executor it returns control to the orchestrator; from the orchestrator
	// it carries the final answer for the turn.
	StatusCompleted Status = "completed"
	// StatusNeedsUserInput pauses the turn until a new inbound message arrives.
	StatusNeedsUserInput Status = "needs_user_input"
	// StatusError signals a recoverable failure; the driver converts it into a
	// terminal diagnostic message and resets control to the orchestrator.
	StatusError Status = "error"
)

// HandoffRequest asks the driver to transfer control to another holder.
// Target is a capability label registered at startup. Instructions carry the
// flow-step directive the receiving holder should act on.
type HandoffRequest struct {
	Target       string `json:"target"`
	Reason       string `json:"reason,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// StateDelta is the only channel through which a holder changes conversation
// routing state. Nil pointer fields leave the corresponding field untouched;
// Metadata entries are merged.
type StateDelta struct {
	Category *string           `json:"category,omitempty"`
	Flow     *string           `json:"flow,omitempty"`
	FlowStep *int              `json:"flow_step,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is returned by every holder invocation.
//
// A non-nil Handoff takes precedence over Status: the driver switches the
// active holder and continues the loop. NextStep optionally overrides
// sequential flow advancement (branch target); the orchestrator honors it
// when it regains control.
type Result struct {
	Status   Status          `json:"status"`
	Payload  string          `json:"payload,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	Handoff  *HandoffRequest `json:"handoff,omitempty"`
	NextStep *int            `json:"next_step,omitempty"`
	Delta    StateDelta      `json:"delta"`
}

// CompletedResult builds a completed result carrying a payload.
func CompletedResult(payload string) Result {
	return Result{Status: StatusCompleted, Payload: payload}
}

// NeedsUserInputResult builds a pause result carrying the question to relay.
func NeedsUserInputResult(question string) Result {
	return Result{Status: StatusNeedsUserInput, Payload: question}
}

// ErrorResult builds an error result from a failure.
func ErrorResult(err error) Result {
	r := Result{Status: StatusError}
	if err != nil {
		r.Detail = err.Error()
	}
	return r
}

// HandoffContext is the read-only context a holder receives when it is
// invoked. Capability and Instructions echo the request that transferred
// control here (empty for the orchestrator's own hops). LastHolder and
// LastResult identify the previous holder and carry its completed or failed
// result when control returns to the orchestrator mid-turn, empty otherwise.
type HandoffContext struct {
	Conversation View
	Capability   string
	Instructions string
	LastHolder   string
	LastResult   *Result
}

// Holder is the uniform handoff contract implemented by the orchestrator and
// every executor. Accept must never panic across the boundary; failures are
// reported through an error-status result. Invocations are strictly
// single-threaded per discussion: the driver guarantees no two holders are
// concurrently active for the same discussion id.
type Holder interface {
	Accept(ctx context.Context, hc HandoffContext) Result
}

// Executor is a specialized holder declaring exactly one capability label
// used to match flow steps at resolution time.
type Executor interface {
	Holder
	Capability() string
}
