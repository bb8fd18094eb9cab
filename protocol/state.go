package protocol

import (
	"fmt"
	"sync/atomic"
)

// State is the phase of a connection. The numeric values are the ones
// sent as the next state of a handshake.
type State uint32

const (
	StateHandshaking State = 0
	StateStatus      State = 1
	StateLogin       State = 2
	StatePlay        State = 3

	// StateErrored drops all further input. It never appears on the wire.
	StateErrored State = 255
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "Handshaking"
	case StateStatus:
		return "Status"
	case StateLogin:
		return "Login"
	case StatePlay:
		return "Play"
	case StateErrored:
		return "Errored"
	}

	return fmt.Sprintf("State(%d)", uint32(s))
}

// compressed reports whether frames in this state use the compression
// envelope.
func (s State) compressed() bool {
	return s == StatePlay
}

// atomicState is read by the writers and the inbound flow and changed by
// either the inbound flow or the login finalizer.
type atomicState struct {
	v uint32
}

func (a *atomicState) Load() State {
	return State(atomic.LoadUint32(&a.v))
}

func (a *atomicState) Store(s State) {
	atomic.StoreUint32(&a.v, uint32(s))
}
