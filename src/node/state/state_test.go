package state

import "testing"

func TestManager(t *testing.T) {
	var m Manager

	if m.GetState() != Idle {
		t.Fatalf("zero Manager should be Idle, not %s", m.GetState())
	}

	if !m.Transition(Idle, Running) {
		t.Fatalf("Idle -> Running should succeed")
	}
	if m.Transition(Idle, Running) {
		t.Fatalf("second Idle -> Running should fail")
	}

	m.SetState(Shutdown)
	if m.GetState().String() != "Shutdown" {
		t.Fatalf("unexpected state %s", m.GetState())
	}
}
