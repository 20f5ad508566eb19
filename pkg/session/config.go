package session

import (
	"crypto/tls"
	"errors"
	"time"

	"github.com/wavelink-protocol/wavelink-go/pkg/connection"
	"github.com/wavelink-protocol/wavelink-go/pkg/log"
	"github.com/wavelink-protocol/wavelink-go/pkg/reachability"
	"github.com/wavelink-protocol/wavelink-go/pkg/transport"
)

// Configuration defaults.
const (
	// DefaultMaxReconnectAttempts is the reconnection attempt limit.
	DefaultMaxReconnectAttempts = 5

	// DefaultConnectTimeout bounds a single connection attempt.
	DefaultConnectTimeout = 30 * time.Second
)

// ErrEndpointRequired indicates a session was configured without an endpoint.
var ErrEndpointRequired = errors.New("endpoint is required")

// Config configures a wavelink session.
type Config struct {
	// Endpoint is the ws:// or wss:// URI to connect to. Required,
	// immutable for the session's lifetime.
	Endpoint string

	// MaxReconnectAttempts limits consecutive failed reconnection
	// attempts (default 5).
	MaxReconnectAttempts int

	// BackoffPolicy computes the wait before each reconnection attempt
	// (default: exponential, base 1s, ceiling 60s).
	BackoffPolicy connection.Policy

	// KeepaliveInterval is the liveness probe interval (default 30s).
	KeepaliveInterval time.Duration

	// KeepaliveTimeout is how long a probe may go unacknowledged
	// (default: one interval).
	KeepaliveTimeout time.Duration

	// ConnectTimeout bounds a single connection attempt (default 30s).
	ConnectTimeout time.Duration

	// TLSConfig contains TLS settings for wss endpoints. Optional.
	TLSConfig *tls.Config

	// Credentials supplies a bearer token for the handshake. Optional.
	Credentials transport.CredentialProvider

	// Monitor provides network reachability awareness. Optional; without
	// it reconnection runs purely on the backoff schedule.
	Monitor reachability.Monitor

	// Logger receives session events. Nil disables logging.
	Logger log.Logger

	// MaxMessageSize is the maximum inbound frame size (default 64KB).
	MaxMessageSize int64
}

// withDefaults returns the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.BackoffPolicy == nil {
		c.BackoffPolicy = connection.DefaultPolicy()
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = transport.DefaultKeepaliveInterval
	}
	if c.KeepaliveTimeout <= 0 {
		c.KeepaliveTimeout = c.KeepaliveInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logger == nil {
		c.Logger = log.NoopLogger{}
	}
	return c
}
