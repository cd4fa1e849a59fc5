package queue

import "fmt"

// State is the lifecycle position of a queue entry.
type State string

const (
	StatePending     State = "PENDING"
	StateDue         State = "DUE"
	StateInFlight    State = "IN_FLIGHT"
	StateApplied     State = "APPLIED"
	StateFailed      State = "FAILED"
	StateRescheduled State = "RESCHEDULED"
	StateSkipped     State = "SKIPPED"
)

var terminalStates = map[State]bool{
	StateApplied: true,
	StateFailed:  true,
	StateSkipped: true,
}

// Entry state transitions. SKIPPED is reachable from every non-terminal
// state via explicit user skip.
var validTransitions = map[State]map[State]bool{
	StatePending: {
		StateDue:     true,
		StateSkipped: true,
	},
	StateDue: {
		StateInFlight: true,
		StateSkipped:  true,
	},
	StateInFlight: {
		StateApplied:     true,
		StateRescheduled: true,
		StateFailed:      true,
		StateSkipped:     true,
	},
	StateRescheduled: {
		StateDue:     true,
		StateSkipped: true,
	},
}

// IsTerminal reports whether no further transitions are allowed. APPLIED is
// terminal for the state machine; only its outcome annotation may change.
func IsTerminal(s State) bool {
	return terminalStates[s]
}

func validateTransition(from, to State) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal state %q", from)
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown state %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition: %q to %q", from, to)
	}
	return nil
}
