package connection

import "errors"

// Connection errors.
var (
	// ErrNotConnected indicates an operation that requires an established
	// connection was called while not connected.
	ErrNotConnected = errors.New("not connected")

	// ErrReconnectExhausted indicates the supervisor gave up after the
	// configured number of attempts. A new explicit connect is required.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// ErrInvalidTransition indicates a state transition outside the
	// lifecycle graph was requested.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateDisconnecting indicates a user-requested teardown is in progress.
	StateDisconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// CanTransitionTo reports whether next is a valid successor of s in the
// connection lifecycle:
//
//	disconnected  -> connecting
//	connecting    -> connected | disconnected | disconnecting
//	connected     -> disconnected | disconnecting
//	disconnecting -> disconnected
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateConnected || next == StateDisconnected || next == StateDisconnecting
	case StateConnected:
		return next == StateDisconnected || next == StateDisconnecting
	case StateDisconnecting:
		return next == StateDisconnected
	default:
		return false
	}
}
