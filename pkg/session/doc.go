// Package session provides the wavelink session facade: a resilient,
// bidirectional, type-routed message stream over a WebSocket endpoint.
//
// A Session owns the connection lifecycle (disconnected, connecting,
// connected, disconnecting), a keepalive pulser, a reconnection
// supervisor with a configurable backoff policy, and a message router
// dispatching inbound envelopes to typed handlers. Transport and
// keepalive failures are recovered internally through the supervisor;
// callers observe health solely through the state-change callback and
// the reconnect-exhausted callback.
//
// # Usage
//
//	s, err := session.New(session.Config{Endpoint: "wss://example.net/stream"})
//	if err != nil { ... }
//	defer s.Close()
//
//	router.Register(s.Router(), "chat.message", func(msg ChatMessage) {
//	    fmt.Println(msg.Body)
//	})
//	s.OnConnectionStateChanged(func(old, new connection.State) {
//	    fmt.Println(old, "->", new)
//	})
//
//	if err := s.Connect(ctx); err != nil { ... }
//	err = s.Send("chat.message", ChatMessage{Body: "hello"})
//
// All session state mutates under a single lock, so state transitions
// are totally ordered. Handlers are registered before Connect; dispatch
// runs on a per-connection queue so a slow handler never blocks the
// receive loop.
package session
