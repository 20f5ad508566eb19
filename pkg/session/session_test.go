package session_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelink-protocol/wavelink-go/pkg/connection"
	"github.com/wavelink-protocol/wavelink-go/pkg/log"
	"github.com/wavelink-protocol/wavelink-go/pkg/reachability"
	"github.com/wavelink-protocol/wavelink-go/pkg/router"
	"github.com/wavelink-protocol/wavelink-go/pkg/session"
	"github.com/wavelink-protocol/wavelink-go/pkg/transport"
)

type note struct {
	Body string `cbor:"1,keyasint"`
}

// startEchoServer runs a loopback echo endpoint for the test's lifetime.
func startEchoServer(t *testing.T) *transport.Server {
	t.Helper()

	srv := transport.NewServer(transport.ServerConfig{})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

// captureLogger records session events for inspection.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// dropCount counts messages dropped because the dispatch queue was full.
func (l *captureLogger) dropCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Error != nil && strings.Contains(e.Error.Message, "dispatch queue full") {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout: " + msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSessionRequiresEndpoint(t *testing.T) {
	_, err := session.New(session.Config{})
	require.ErrorIs(t, err, session.ErrEndpointRequired)
}

func TestSessionRoundTrip(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)
	defer s.Close()

	received := make(chan note, 1)
	router.Register(s.Router(), "note", func(msg note) {
		received <- msg
	})

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, connection.StateConnected, s.State())

	require.NoError(t, s.Send("note", note{Body: "hello"}))

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echoed message")
	}
}

func TestSessionConnectIdempotent(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, connection.StateConnected, s.State())

	waitFor(t, 2*time.Second, func() bool { return srv.ConnectionCount() == 1 },
		"expected a single server-side connection")
}

func TestSessionSendWhileDisconnected(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)
	defer s.Close()

	err = s.Send("note", note{Body: "too early"})
	require.ErrorIs(t, err, connection.ErrNotConnected)
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, connection.StateDisconnected, s.State())

	err = s.Send("note", note{Body: "after disconnect"})
	require.ErrorIs(t, err, connection.ErrNotConnected)

	waitFor(t, 2*time.Second, func() bool { return srv.ConnectionCount() == 0 },
		"server-side connection not released")
}

func TestSessionStateCallbackSequence(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)
	defer s.Close()

	var mu sync.Mutex
	var transitions []connection.State
	s.OnConnectionStateChanged(func(oldState, newState connection.State) {
		mu.Lock()
		transitions = append(transitions, newState)
		mu.Unlock()
	})

	require.NoError(t, s.Connect(context.Background()))
	s.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []connection.State{
		connection.StateConnecting,
		connection.StateConnected,
		connection.StateDisconnecting,
		connection.StateDisconnected,
	}, transitions)
}

func TestSessionReconnectsAfterDrop(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{
		Endpoint:      srv.URL(),
		BackoffPolicy: connection.FixedPolicy{Interval: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	defer s.Close()

	reconnected := make(chan struct{}, 4)
	s.OnConnectionStateChanged(func(oldState, newState connection.State) {
		if oldState == connection.StateConnecting && newState == connection.StateConnected {
			reconnected <- struct{}{}
		}
	})

	require.NoError(t, s.Connect(context.Background()))
	<-reconnected

	// Drop the connection server-side; the supervisor must bring the
	// stream back without caller involvement.
	srv.CloseConnections()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for automatic reconnect")
	}

	assert.Equal(t, connection.StateConnected, s.State())
	waitFor(t, 2*time.Second, func() bool { return srv.ConnectionCount() == 1 },
		"expected exactly one connection after reconnect")
}

func TestSessionReconnectExhaustion(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{
		Endpoint:             srv.URL(),
		MaxReconnectAttempts: 2,
		BackoffPolicy:        connection.FixedPolicy{Interval: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	defer s.Close()

	exhausted := make(chan struct{})
	s.OnReconnectExhausted(func() { close(exhausted) })

	require.NoError(t, s.Connect(context.Background()))

	// Kill the endpoint entirely so every retry fails.
	require.NoError(t, srv.Stop())

	select {
	case <-exhausted:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exhaustion")
	}

	assert.Equal(t, connection.StateDisconnected, s.State())
	err = s.Send("note", note{Body: "no endpoint"})
	require.ErrorIs(t, err, connection.ErrNotConnected)
}

func TestSessionConnectFailureStartsSupervisor(t *testing.T) {
	s, err := session.New(session.Config{
		// Nothing listens here.
		Endpoint:             "ws://127.0.0.1:1/",
		MaxReconnectAttempts: 2,
		BackoffPolicy:        connection.FixedPolicy{Interval: 10 * time.Millisecond},
		ConnectTimeout:       200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Close()

	exhausted := make(chan struct{})
	s.OnReconnectExhausted(func() { close(exhausted) })

	// The initial failure surfaces to the caller and hands recovery to
	// the supervisor.
	err = s.Connect(context.Background())
	require.Error(t, err)

	select {
	case <-exhausted:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exhaustion")
	}
}

func TestSessionNetworkFlip(t *testing.T) {
	srv := startEchoServer(t)
	monitor := reachability.NewManualMonitor(reachability.StatusSatisfied)

	s, err := session.New(session.Config{
		Endpoint: srv.URL(),
		Monitor:  monitor,
		// An hour-long backoff proves recovery does not ride the
		// retry schedule.
		BackoffPolicy: connection.FixedPolicy{Interval: time.Hour},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	// Network path gone: the session must tear down promptly.
	monitor.SetStatus(reachability.StatusUnsatisfied)
	waitFor(t, 2*time.Second, func() bool { return s.State() == connection.StateDisconnected },
		"session did not suspend on network loss")

	// Path restored: reconnection is immediate, bypassing backoff.
	monitor.SetStatus(reachability.StatusSatisfied)
	waitFor(t, 5*time.Second, func() bool { return s.State() == connection.StateConnected },
		"session did not resume on network recovery")
}

func TestSessionCaptivePortalTreatedAsUnusable(t *testing.T) {
	srv := startEchoServer(t)
	monitor := reachability.NewManualMonitor(reachability.StatusSatisfied)

	s, err := session.New(session.Config{
		Endpoint:      srv.URL(),
		Monitor:       monitor,
		BackoffPolicy: connection.FixedPolicy{Interval: time.Hour},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	monitor.SetStatus(reachability.StatusRequiresConnection)
	waitFor(t, 2*time.Second, func() bool { return s.State() == connection.StateDisconnected },
		"session did not suspend behind captive portal")
}

func TestSessionKeepaliveHoldsConnection(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{
		Endpoint:          srv.URL(),
		KeepaliveInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	// Several probe periods pass; the server answers pings, so the
	// session must stay healthy.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, connection.StateConnected, s.State())
}

func TestSessionReconnectAfterExplicitReconnect(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{
		Endpoint:             srv.URL(),
		MaxReconnectAttempts: 2,
		BackoffPolicy:        connection.FixedPolicy{Interval: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	s.Disconnect()

	// A fresh explicit connect grants a fresh attempt budget.
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, connection.StateConnected, s.State())
}

func TestSessionSlowHandlerDoesNotStallReads(t *testing.T) {
	srv := startEchoServer(t)

	logger := &captureLogger{}
	s, err := session.New(session.Config{Endpoint: srv.URL(), Logger: logger})
	require.NoError(t, err)
	defer s.Close()

	gate := make(chan struct{})
	router.Register(s.Router(), "note", func(msg note) {
		<-gate
	})
	received := make(chan note, 1)
	router.Register(s.Router(), "note.final", func(msg note) {
		received <- msg
	})

	require.NoError(t, s.Connect(context.Background()))

	// With the first handler stuck, the echoes pile up until the dispatch
	// queue is full; the overflow must be dropped, not block the reads.
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Send("note", note{Body: "flood"}))
	}

	waitFor(t, 5*time.Second, func() bool { return logger.dropCount() > 0 },
		"backlog overflow never reported")
	assert.Equal(t, connection.StateConnected, s.State())

	close(gate)

	require.NoError(t, s.Send("note.final", note{Body: "after"}))
	select {
	case msg := <-received:
		assert.Equal(t, "after", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("message after backlog was never delivered")
	}
}

func TestSessionCloseAfterUse(t *testing.T) {
	srv := startEchoServer(t)

	s, err := session.New(session.Config{Endpoint: srv.URL()})
	require.NoError(t, err)

	require.NoError(t, s.Connect(context.Background()))
	s.Close()

	require.ErrorIs(t, s.Connect(context.Background()), session.ErrClosed)
}
