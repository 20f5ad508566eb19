package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope errors.
var (
	// ErrMalformedEnvelope indicates the envelope bytes could not be decoded
	// or the decoded envelope carries no type identifier.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrEmptyType indicates an envelope was constructed without a type.
	ErrEmptyType = errors.New("envelope type must not be empty")
)

// Envelope is the wire-level wrapper for an application message.
// The payload is opaque to the transport and routing layers; only the
// handler registered for Type knows how to decode it.
type Envelope struct {
	// Type identifies which handler the payload is routed to.
	Type string `cbor:"1,keyasint"`

	// Payload is the CBOR-encoded message body. May be empty for
	// signal-style messages that carry no data.
	Payload cbor.RawMessage `cbor:"2,keyasint,omitempty"`
}

// Validate checks envelope invariants.
func (e *Envelope) Validate() error {
	if e.Type == "" {
		return ErrEmptyType
	}
	return nil
}

// NewEnvelope builds an envelope for the given type, encoding payload to
// CBOR. A nil payload produces an envelope with an empty body.
func NewEnvelope(typeID string, payload any) (*Envelope, error) {
	if typeID == "" {
		return nil, ErrEmptyType
	}

	env := &Envelope{Type: typeID}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload for %q: %w", typeID, err)
		}
		env.Payload = data
	}
	return env, nil
}

// EncodeEnvelope encodes an envelope to CBOR bytes.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return Marshal(env)
}

// DecodeEnvelope decodes CBOR bytes into an envelope.
// Undecodable bytes and envelopes without a type identifier both report
// ErrMalformedEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type identifier", ErrMalformedEnvelope)
	}
	return &env, nil
}
