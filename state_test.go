package chartz

import "testing"

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateDisabled: "disabled",
		StateIdle:     "idle",
		StateLoading:  "loading",
		StateHealthy:  "healthy",
		StateDegraded: "degraded",
		StateEmpty:    "empty",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestState_String_Unknown(t *testing.T) {
	unknown := State(999)
	if s := unknown.String(); s != "unknown" {
		t.Errorf("expected 'unknown', got %q", s)
	}
}

func TestState_Values(t *testing.T) {
	// Verify iota ordering
	if StateDisabled != 0 {
		t.Errorf("expected StateDisabled=0, got %d", StateDisabled)
	}
	if StateEmpty != 5 {
		t.Errorf("expected StateEmpty=5, got %d", StateEmpty)
	}
}
