package batch

import "testing"

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateAttempting, true},
		{StatePending, StateFailed, true},
		{StatePending, StateSucceeded, false},
		{StateAttempting, StateRetrying, true},
		{StateAttempting, StateSucceeded, true},
		{StateRetrying, StateAttempting, true},
		{StateRetrying, StateSucceeded, false},
		{StateSucceeded, StateAttempting, false},
		{StateFailed, StateRetrying, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StatePending, StateAttempting, StateRetrying} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
