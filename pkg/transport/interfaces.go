package transport

import (
	"errors"
	"net"
)

// ErrSessionClosed indicates an operation on a closed transport session.
var ErrSessionClosed = errors.New("transport session closed")

// Session represents one physical duplex connection.
// Implemented by Conn. A session is owned by exactly one connection
// lifecycle; after closure it is discarded, never reused.
type Session interface {
	// Send sends a binary frame to the peer.
	Send(data []byte) error

	// Receive blocks until the next frame arrives, the session closes,
	// or an error occurs.
	Receive() ([]byte, error)

	// Ping sends a ping control frame carrying payload.
	Ping(payload []byte) error

	// Close closes the session. Safe to call multiple times.
	Close() error

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr
}

// Compile-time interface satisfaction check.
var _ Session = (*Conn)(nil)
