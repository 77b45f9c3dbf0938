package core

import "sync/atomic"

// ConnState is the lifecycle of the single connection.
//
//	Disconnected -> Connecting -> Open -> Closing -> Closed
//	Open -> Disconnected on transport error
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Open
	Closing
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s ConnState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StateCell is a ConnState readable from any goroutine.
type StateCell struct{ v atomic.Int32 }

func (c *StateCell) Load() ConnState { return ConnState(c.v.Load()) }

func (c *StateCell) Store(s ConnState) { c.v.Store(int32(s)) }

// Transition moves from one state to another and reports whether it happened.
func (c *StateCell) Transition(from, to ConnState) bool {
	return c.v.CompareAndSwap(int32(from), int32(to))
}
