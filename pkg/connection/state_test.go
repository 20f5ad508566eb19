package connection

import "testing"

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateDisconnecting, "DISCONNECTING"},
		{State(42), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestStateTransitions(t *testing.T) {
	allowed := map[State][]State{
		StateDisconnected:  {StateConnecting},
		StateConnecting:    {StateConnected, StateDisconnected, StateDisconnecting},
		StateConnected:     {StateDisconnected, StateDisconnecting},
		StateDisconnecting: {StateDisconnected},
	}

	states := []State{StateDisconnected, StateConnecting, StateConnected, StateDisconnecting}
	for _, from := range states {
		for _, to := range states {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%v.CanTransitionTo(%v) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNoStateSkipping(t *testing.T) {
	// Connecting cannot be skipped on the way up.
	if StateDisconnected.CanTransitionTo(StateConnected) {
		t.Error("disconnected -> connected must not be allowed")
	}
	// Disconnecting is terminal-bound only.
	if StateDisconnecting.CanTransitionTo(StateConnecting) {
		t.Error("disconnecting -> connecting must not be allowed")
	}
}
