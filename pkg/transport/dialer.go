package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wavelink-protocol/wavelink-go/pkg/version"
)

// Dialer defaults.
const (
	// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultMaxMessageSize is the maximum inbound frame size (64KB).
	DefaultMaxMessageSize = 64 * 1024

	// writeWait bounds a single control frame write.
	writeWait = 5 * time.Second
)

// DialConfig configures a wavelink dialer.
type DialConfig struct {
	// TLSConfig contains TLS settings for wss endpoints. Optional.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds the opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// MaxMessageSize is the maximum inbound frame size (default: 64KB).
	MaxMessageSize int64

	// Credentials supplies a bearer token sent in the handshake's
	// Authorization header. Optional.
	Credentials CredentialProvider
}

// Dialer opens transport sessions to a wavelink endpoint.
type Dialer struct {
	config DialConfig
}

// NewDialer creates a dialer with the given configuration.
func NewDialer(config DialConfig) *Dialer {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Dialer{config: config}
}

// Dial opens a new transport session to the endpoint (ws:// or wss:// URI).
func (d *Dialer) Dial(ctx context.Context, endpoint string) (*Conn, error) {
	header := http.Header{}
	if d.config.Credentials != nil {
		token, err := d.config.Credentials.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain credentials: %w", err)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	wsDialer := websocket.Dialer{
		HandshakeTimeout: d.config.HandshakeTimeout,
		TLSClientConfig:  d.config.TLSConfig,
		Subprotocols:     version.SupportedSubprotocols(),
	}

	ws, resp, err := wsDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("dial %s failed (HTTP %d): %w", endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s failed: %w", endpoint, err)
	}

	ws.SetReadLimit(d.config.MaxMessageSize)

	conn := &Conn{
		ws:      ws,
		closeCh: make(chan struct{}),
	}

	// Pong frames arrive during Receive; forward them to the registered
	// handler (the keepalive pulser).
	ws.SetPongHandler(func(appData string) error {
		conn.handlePong([]byte(appData))
		return nil
	})

	return conn, nil
}

// Conn is a client-side transport session over WebSocket.
type Conn struct {
	ws      *websocket.Conn
	closeCh chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex

	pongMu sync.Mutex
	onPong func(payload []byte)
}

// SetPongHandler sets the callback invoked when a pong control frame
// arrives. Pongs are delivered from within Receive, so the callback must
// not block. Must be set before the receive loop starts.
func (c *Conn) SetPongHandler(fn func(payload []byte)) {
	c.pongMu.Lock()
	defer c.pongMu.Unlock()
	c.onPong = fn
}

func (c *Conn) handlePong(payload []byte) {
	c.pongMu.Lock()
	fn := c.onPong
	c.pongMu.Unlock()

	if fn != nil {
		fn(payload)
	}
}

// Send sends a binary frame to the peer.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrSessionClosed
	default:
	}

	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("frame write failed: %w", err)
	}
	return nil
}

// Receive blocks until the next frame arrives. Control frames (ping,
// pong) are handled internally and do not surface here. Returns
// ErrSessionClosed after Close.
func (c *Conn) Receive() ([]byte, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
				return nil, ErrSessionClosed
			default:
			}
			return nil, fmt.Errorf("frame read failed: %w", err)
		}
		return data, nil
	}
}

// Ping sends a ping control frame carrying payload.
func (c *Conn) Ping(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrSessionClosed
	default:
	}

	if err := c.ws.WriteControl(websocket.PingMessage, payload, time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping write failed: %w", err)
	}
	return nil
}

// Close closes the session. A close frame is sent best-effort; the
// underlying connection is closed regardless.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}
