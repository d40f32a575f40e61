package state

import (
	"sync/atomic"
)

// State captures the lifecycle state of a node: Idle, Running or Shutdown
type State uint32

const (
	// Idle is the state of a node that has been created but whose loop has
	// not started. Its handlers may be called directly.
	Idle State = iota

	// Running is the state in which a node's loop consumes RPCs and
	// introspection requests.
	Running

	// Shutdown is the state in which a node stops responding to external
	// events.
	Shutdown
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods.
type Manager struct {
	state State
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Transition moves from one state to another atomically and reports whether
// the node was in the expected state.
func (b *Manager) Transition(from, to State) bool {
	stateAddr := (*uint32)(&b.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(from), uint32(to))
}
