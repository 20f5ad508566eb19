package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavelink-protocol/wavelink-go/pkg/connection"
	"github.com/wavelink-protocol/wavelink-go/pkg/log"
	"github.com/wavelink-protocol/wavelink-go/pkg/reachability"
	"github.com/wavelink-protocol/wavelink-go/pkg/router"
	"github.com/wavelink-protocol/wavelink-go/pkg/transport"
	"github.com/wavelink-protocol/wavelink-go/pkg/wire"
)

// ErrClosed indicates the session facade has been closed.
var ErrClosed = errors.New("session closed")

// errAborted indicates a connection attempt was overtaken by an explicit
// disconnect before it could complete.
var errAborted = errors.New("connection attempt aborted")

// errDispatchBacklog indicates an inbound message was dropped because the
// dispatch queue was full behind a slow handler.
var errDispatchBacklog = errors.New("dispatch queue full, message dropped")

// dispatchQueueSize bounds the per-connection dispatch backlog.
const dispatchQueueSize = 64

// Session is the public entry point for a resilient wavelink stream.
// All mutable connection state (current state, active transport session,
// keepalive pulser) is guarded by a single mutex, so transitions are
// totally ordered and never interleave.
type Session struct {
	cfg    Config
	logger log.Logger

	dialer     *transport.Dialer
	router     *router.Router
	supervisor *connection.Supervisor
	monitor    reachability.Monitor

	mu     sync.Mutex
	state  connection.State
	conn   *transport.Conn
	pulser *transport.Pulser
	connID string
	// gen invalidates callbacks from torn-down connections.
	gen    uint64
	closed bool

	// Callbacks
	onStateChange func(oldState, newState connection.State)
	onExhausted   func()

	monitorCancel context.CancelFunc
}

// New creates a session for the configured endpoint. The session starts
// disconnected; call Connect to bring the stream up.
func New(cfg Config) (*Session, error) {
	if cfg.Endpoint == "" {
		return nil, ErrEndpointRequired
	}
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:     cfg,
		logger:  cfg.Logger,
		monitor: cfg.Monitor,
		state:   connection.StateDisconnected,
	}

	s.dialer = transport.NewDialer(transport.DialConfig{
		TLSConfig:        cfg.TLSConfig,
		HandshakeTimeout: cfg.ConnectTimeout,
		MaxMessageSize:   cfg.MaxMessageSize,
		Credentials:      cfg.Credentials,
	})
	s.router = router.New(cfg.Logger)

	s.supervisor = connection.NewSupervisor(connection.SupervisorConfig{
		MaxAttempts:    cfg.MaxReconnectAttempts,
		Policy:         cfg.BackoffPolicy,
		ConnectTimeout: cfg.ConnectTimeout,
		Monitor:        cfg.Monitor,
	}, s.establish)
	s.supervisor.OnExhausted(s.handleExhausted)
	s.supervisor.OnRetryScheduled(func(attempt int, delay time.Duration) {
		s.logger.Log(log.NewStateChangeEvent(s.currentConnID(), "", connection.StateConnecting.String(),
			fmt.Sprintf("retry %d scheduled in %s", attempt, delay)))
	})
	s.supervisor.Start()

	if s.monitor != nil {
		s.monitor.OnChange(s.networkChanged)
		ctx, cancel := context.WithCancel(context.Background())
		s.monitorCancel = cancel
		s.monitor.Start(ctx)
	}

	return s, nil
}

// Router returns the message router. Register handlers before Connect.
func (s *Session) Router() *router.Router {
	return s.router
}

// State returns the current connection state.
func (s *Session) State() connection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnConnectionStateChanged sets a callback for state transitions.
// Must be set before Connect.
func (s *Session) OnConnectionStateChanged(fn func(oldState, newState connection.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnReconnectExhausted sets a callback fired once when the reconnection
// attempt limit is reached. Must be set before Connect.
func (s *Session) OnReconnectExhausted(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExhausted = fn
}

// Connect brings the stream up. It is a no-op returning nil if the
// session is already connecting or connected. A failed attempt is handed
// to the reconnection supervisor and also reported to the caller.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	// Explicit connect: fresh reconnect intent and attempt budget.
	s.supervisor.ResetAttempts()
	s.supervisor.SetShouldReconnect(true)

	err := s.establish(ctx)
	if errors.Is(err, errAborted) {
		return nil
	}
	return err
}

// Disconnect tears the stream down and disables reconnection. All
// pending timers (keepalive, scheduled retry) are cancelled before the
// final disconnected state is reached. Idempotent.
func (s *Session) Disconnect() {
	// Clearing the intent also cancels a pending retry timer.
	s.supervisor.SetShouldReconnect(false)

	s.mu.Lock()
	if s.state == connection.StateDisconnected || s.state == connection.StateDisconnecting {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = connection.StateDisconnecting
	conn, pulser := s.detachLocked()
	connID := s.connID
	fn := s.onStateChange
	s.mu.Unlock()

	s.logger.Log(log.NewStateChangeEvent(connID, from.String(), connection.StateDisconnecting.String(), "user requested"))
	if fn != nil {
		fn(from, connection.StateDisconnecting)
	}

	if pulser != nil {
		pulser.Stop()
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.supervisor.ConnectionSuspended()

	s.mu.Lock()
	s.state = connection.StateDisconnected
	s.mu.Unlock()

	s.logger.Log(log.NewStateChangeEvent(connID, connection.StateDisconnecting.String(), connection.StateDisconnected.String(), "user requested"))
	if fn != nil {
		fn(connection.StateDisconnecting, connection.StateDisconnected)
	}
}

// Close disconnects and releases all session resources. The session
// cannot be reused afterwards.
func (s *Session) Close() {
	s.Disconnect()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.monitorCancel != nil {
		s.monitorCancel()
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.supervisor.Close()
}

// Send encodes payload into an envelope of the given type and writes it
// to the active transport session. Fails with connection.ErrNotConnected
// unless the state is connected; a write that loses the race with a
// teardown also surfaces connection.ErrNotConnected rather than being
// silently dropped.
func (s *Session) Send(typeID string, payload any) error {
	env, err := wire.NewEnvelope(typeID, payload)
	if err != nil {
		return err
	}
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != connection.StateConnected || s.conn == nil {
		s.mu.Unlock()
		return connection.ErrNotConnected
	}
	conn := s.conn
	connID := s.connID
	s.mu.Unlock()

	if err := conn.Send(data); err != nil {
		return fmt.Errorf("%w: %v", connection.ErrNotConnected, err)
	}

	s.logger.Log(log.NewMessageEvent(connID, log.DirectionOut, typeID, len(env.Payload)))
	return nil
}

// establish performs one connection attempt. It is the ConnectFunc
// driven by both explicit Connect and the reconnection supervisor.
func (s *Session) establish(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch s.state {
	case connection.StateConnected, connection.StateConnecting:
		// Idempotent entry.
		s.mu.Unlock()
		return nil
	case connection.StateDisconnecting:
		s.mu.Unlock()
		return errAborted
	}
	from := s.state
	s.state = connection.StateConnecting
	fn := s.onStateChange
	s.mu.Unlock()

	s.logger.Log(log.NewStateChangeEvent("", from.String(), connection.StateConnecting.String(), ""))
	if fn != nil {
		fn(from, connection.StateConnecting)
	}

	conn, err := s.dialer.Dial(ctx, s.cfg.Endpoint)
	if err != nil {
		s.mu.Lock()
		stillConnecting := s.state == connection.StateConnecting
		if stillConnecting {
			s.state = connection.StateDisconnected
		}
		s.mu.Unlock()

		if stillConnecting {
			s.logger.Log(log.NewErrorEvent("", log.LayerTransport, err, "dial"))
			s.logger.Log(log.NewStateChangeEvent("", connection.StateConnecting.String(),
				connection.StateDisconnected.String(), "dial failed"))
			if fn != nil {
				fn(connection.StateConnecting, connection.StateDisconnected)
			}
			s.supervisor.ConnectionLost()
		}
		return err
	}

	s.mu.Lock()
	if s.state != connection.StateConnecting {
		// An explicit disconnect overtook the dial; discard the session.
		s.mu.Unlock()
		_ = conn.Close()
		return errAborted
	}

	s.gen++
	gen := s.gen
	s.conn = conn
	s.connID = uuid.NewString()
	connID := s.connID

	pulser := transport.NewPulser(
		transport.PulserConfig{
			Interval: s.cfg.KeepaliveInterval,
			Timeout:  s.cfg.KeepaliveTimeout,
		},
		func(seq uint32) error {
			s.logger.Log(log.NewControlEvent(connID, log.DirectionOut, log.ControlMsgPing, seq))
			return conn.Ping(transport.EncodeProbeSeq(seq))
		},
		func() { s.handleFailure(gen, errors.New("keepalive timeout"), "keepalive") },
	)
	s.pulser = pulser
	s.state = connection.StateConnected
	s.mu.Unlock()

	// Pongs count as liveness evidence; correlation by sequence number
	// is not attempted.
	conn.SetPongHandler(func(payload []byte) {
		pulser.PongReceived()
		s.logger.Log(log.NewControlEvent(connID, log.DirectionIn, log.ControlMsgPong, transport.DecodeProbeSeq(payload)))
	})

	s.logger.Log(log.NewStateChangeEvent(connID, connection.StateConnecting.String(),
		connection.StateConnected.String(), "established"))
	if fn != nil {
		fn(connection.StateConnecting, connection.StateConnected)
	}
	s.supervisor.NotifyConnected()

	pulser.Start(context.Background())
	go s.receiveLoop(conn, gen, connID)

	return nil
}

// receiveLoop reads frames while connected and feeds them to the router
// through a bounded queue, so a slow handler cannot stall the reads.
func (s *Session) receiveLoop(conn *transport.Conn, gen uint64, connID string) {
	frames := make(chan []byte, dispatchQueueSize)
	defer close(frames)

	go func() {
		for data := range frames {
			// Routing failures are per-message diagnostics; the router
			// has already logged them.
			_ = s.router.Route(data)
		}
	}()

	for {
		data, err := conn.Receive()
		if err != nil {
			s.handleFailure(gen, err, "receive")
			return
		}

		s.logger.Log(log.NewFrameEvent(connID, log.DirectionIn, len(data)))

		// Never block the read loop on a full queue: blocking here would
		// also stall pong processing until keepalive kills the link.
		select {
		case frames <- data:
		default:
			s.logger.Log(log.NewErrorEvent(connID, log.LayerSession, errDispatchBacklog, "dispatch"))
		}
	}
}

// handleFailure reacts to a transport error or keepalive timeout for the
// connection identified by gen. Stale generations (already torn down)
// are ignored.
func (s *Session) handleFailure(gen uint64, cause error, context string) {
	s.mu.Lock()
	if s.closed || s.gen != gen || s.state != connection.StateConnected {
		s.mu.Unlock()
		return
	}
	conn, pulser := s.detachLocked()
	s.state = connection.StateDisconnected
	connID := s.connID
	fn := s.onStateChange
	s.mu.Unlock()

	if pulser != nil {
		pulser.Stop()
	}
	if conn != nil {
		_ = conn.Close()
	}

	s.logger.Log(log.NewErrorEvent(connID, log.LayerTransport, cause, context))
	s.logger.Log(log.NewStateChangeEvent(connID, connection.StateConnected.String(),
		connection.StateDisconnected.String(), cause.Error()))
	if fn != nil {
		fn(connection.StateConnected, connection.StateDisconnected)
	}

	s.supervisor.ConnectionLost()
}

// networkChanged reacts to reachability transitions. Loss of the network
// path while up forces a teardown that does not consume the reconnect
// attempt budget; recovery is handled by the supervisor.
func (s *Session) networkChanged(status reachability.Status) {
	if !status.Usable() {
		s.suspend(status)
	}
	s.supervisor.NetworkStatusChanged(status)
}

// suspend force-disconnects when the network path goes away.
func (s *Session) suspend(status reachability.Status) {
	s.mu.Lock()
	if s.closed || (s.state != connection.StateConnected && s.state != connection.StateConnecting) {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = connection.StateDisconnected
	conn, pulser := s.detachLocked()
	connID := s.connID
	fn := s.onStateChange
	s.mu.Unlock()

	if pulser != nil {
		pulser.Stop()
	}
	if conn != nil {
		_ = conn.Close()
	}

	s.logger.Log(log.NewStateChangeEvent(connID, from.String(),
		connection.StateDisconnected.String(), "network "+status.String()))
	if fn != nil {
		fn(from, connection.StateDisconnected)
	}

	s.supervisor.ConnectionSuspended()
}

// detachLocked removes the transport session and pulser from the facade
// and bumps the generation so stale callbacks are ignored.
// Caller must hold s.mu.
func (s *Session) detachLocked() (*transport.Conn, *transport.Pulser) {
	conn := s.conn
	pulser := s.pulser
	s.conn = nil
	s.pulser = nil
	s.gen++
	return conn, pulser
}

// handleExhausted surfaces the terminal reconnect-exhausted event.
func (s *Session) handleExhausted() {
	s.mu.Lock()
	fn := s.onExhausted
	connID := s.connID
	s.mu.Unlock()

	s.logger.Log(log.NewErrorEvent(connID, log.LayerSession,
		connection.ErrReconnectExhausted, "supervisor"))

	if fn != nil {
		fn()
	}
}

// currentConnID returns the active connection's ID, or empty.
func (s *Session) currentConnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}
