package transport

import "context"

// CredentialProvider supplies a bearer token for the WebSocket handshake.
// The transport treats the token as opaque and does not manage refresh.
type CredentialProvider interface {
	// Token returns the current bearer token.
	Token(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider returning a fixed token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Compile-time interface satisfaction check.
var _ CredentialProvider = StaticToken("")
