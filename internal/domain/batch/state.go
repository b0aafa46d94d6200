package batch

// State is the lifecycle position of a single target within a run.
type State string

// Target states.
const (
	StatePending    State = "pending"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StatePending:    {StateAttempting, StateFailed},
	StateAttempting: {StateSucceeded, StateRetrying, StateFailed},
	StateRetrying:   {StateAttempting, StateFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
