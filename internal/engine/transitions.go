package engine

import (
	"github.com/drover-io/drover/internal/util"
	"github.com/drover-io/drover/pkg/api"
)

// StateTransitions maps states to their set of valid next states
type StateTransitions[T comparable] map[T]util.Set[T]

// flowTransitions is the flow state machine. A resume on an already-active
// flow is legal (active -> active): extra input can arrive before the task
// marks itself waiting, and the resume still records history
var flowTransitions = StateTransitions[api.FlowStatus]{
	api.FlowActive: util.SetOf(
		api.FlowActive,
		api.FlowWaiting,
		api.FlowCompleted,
		api.FlowFailed,
	),
	api.FlowWaiting: util.SetOf(
		api.FlowActive,
		api.FlowCompleted,
		api.FlowFailed,
	),
	api.FlowCompleted: {},
	api.FlowFailed:    {},
}

// CanTransition returns whether transition from one state to another is
// valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}
