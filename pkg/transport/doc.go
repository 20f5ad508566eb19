// Package transport provides the WebSocket transport layer for wavelink.
//
// A transport session wraps a single physical WebSocket connection:
// it can send frames, receive frames, and report closure. Sessions are
// replaceable per reconnect attempt; the session layer never reuses a
// transport session across reconnects.
//
// The package contains:
//
//   - Dialer / Conn: the client side. The dialer performs the WebSocket
//     handshake (optionally over TLS, optionally with a bearer token from
//     a CredentialProvider) and returns a Conn.
//   - Pulser: periodic liveness probing over an active session using
//     WebSocket ping/pong control frames.
//   - Server: a small echo server used by the demo binary and the test
//     suite.
//
// Frames are opaque byte slices here; envelope encoding lives in
// package wire.
package transport
