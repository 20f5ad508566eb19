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

// ServerConfig configures a wavelink echo server.
type ServerConfig struct {
	// Addr is the listen address (default: "127.0.0.1:0").
	Addr string

	// TLSConfig enables wss when set.
	TLSConfig *tls.Config

	// MaxMessageSize is the maximum inbound frame size (default: 64KB).
	MaxMessageSize int64

	// Handler transforms an inbound frame into the reply frame.
	// Nil selects EchoHandler.
	Handler func(data []byte) []byte
}

// EchoHandler replies with the received frame unchanged.
func EchoHandler(data []byte) []byte { return data }

// Server is a WebSocket server that answers frames via a handler.
// The demo binary runs it as an echo peer; the test suite uses it as a
// loopback endpoint. Ping control frames are answered with pongs
// automatically.
type Server struct {
	config   ServerConfig
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	conns    map[*websocket.Conn]*sync.Mutex // per-connection write locks
	running  bool

	wg sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) *Server {
	if config.Addr == "" {
		config.Addr = "127.0.0.1:0"
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.Handler == nil {
		config.Handler = EchoHandler
	}

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    version.SupportedSubprotocols(),
			// The demo server accepts any origin; it is not an
			// internet-facing endpoint.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.httpSrv.Serve(ln)
	}()

	return nil
}

// Stop gracefully stops the server, closing all active connections.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpSrv
	s.mu.Unlock()

	s.CloseConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)

	s.wg.Wait()
	return err
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the ws:// (or wss://) endpoint URI for this server.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}
	scheme := "ws"
	if s.config.TLSConfig != nil {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/", scheme, addr)
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CloseConnections force-closes every active connection without stopping
// the listener. Tests use this to simulate transport failures.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Broadcast sends a binary frame to every active connection.
func (s *Server) Broadcast(data []byte) {
	s.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(s.conns))
	for c, wmu := range s.conns {
		conns[c] = wmu
	}
	s.mu.Unlock()

	for c, wmu := range conns {
		wmu.Lock()
		_ = c.WriteMessage(websocket.BinaryMessage, data)
		wmu.Unlock()
	}
}

// handleUpgrade upgrades an HTTP request and serves frames until closure.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.SetReadLimit(s.config.MaxMessageSize)

	writeMu := &sync.Mutex{}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[ws] = writeMu
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, ws)
		s.mu.Unlock()
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		reply := s.config.Handler(data)
		if reply == nil {
			continue
		}

		writeMu.Lock()
		err = ws.WriteMessage(websocket.BinaryMessage, reply)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}
