package wire

import (
	"errors"
	"testing"
)

type testChatMessage struct {
	From string `cbor:"1,keyasint"`
	Body string `cbor:"2,keyasint"`
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope("chat.message", testChatMessage{From: "alice", Body: "hello"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}

	if decoded.Type != "chat.message" {
		t.Errorf("Type = %q, want %q", decoded.Type, "chat.message")
	}

	var msg testChatMessage
	if err := Unmarshal(decoded.Payload, &msg); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if msg.From != "alice" || msg.Body != "hello" {
		t.Errorf("payload = %+v, want original values", msg)
	}
}

func TestEnvelopeEmptyPayload(t *testing.T) {
	env, err := NewEnvelope("presence.ping", nil)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if decoded.Type != "presence.ping" {
		t.Errorf("Type = %q, want %q", decoded.Type, "presence.ping")
	}
	if len(decoded.Payload) != 0 {
		t.Errorf("Payload = %x, want empty", decoded.Payload)
	}
}

func TestNewEnvelopeEmptyType(t *testing.T) {
	if _, err := NewEnvelope("", nil); !errors.Is(err, ErrEmptyType) {
		t.Errorf("NewEnvelope(\"\") error = %v, want ErrEmptyType", err)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"NotCBOR", []byte{0xff, 0xff, 0xff}},
		{"Empty", nil},
		{"MissingType", mustMarshal(t, map[int]any{2: []byte{0x01}})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope(tc.data)
			if !errors.Is(err, ErrMalformedEnvelope) {
				t.Errorf("DecodeEnvelope error = %v, want ErrMalformedEnvelope", err)
			}
		})
	}
}

func TestDeterministicEncoding(t *testing.T) {
	env, err := NewEnvelope("chat.message", testChatMessage{From: "bob", Body: "hi"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	a, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	b, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}

	if !Equal(a, b) {
		t.Error("identical envelopes produced different encodings")
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return data
}
