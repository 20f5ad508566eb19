package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelink-protocol/wavelink-go/pkg/wire"
)

type chatMessage struct {
	From string `cbor:"1,keyasint"`
	Body string `cbor:"2,keyasint"`
}

type presencePing struct {
	Nick string `cbor:"1,keyasint"`
}

func encode(t *testing.T, typeID string, payload any) []byte {
	t.Helper()
	env, err := wire.NewEnvelope(typeID, payload)
	require.NoError(t, err)
	data, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)
	return data
}

func TestRouteDispatchesToTypedHandler(t *testing.T) {
	r := New(nil)

	var got chatMessage
	Register(r, "chat.message", func(msg chatMessage) { got = msg })

	err := r.Route(encode(t, "chat.message", chatMessage{From: "alice", Body: "hello"}))
	require.NoError(t, err)

	assert.Equal(t, "alice", got.From)
	assert.Equal(t, "hello", got.Body)
}

func TestRouteRoundTripPreservesPayload(t *testing.T) {
	r := New(nil)

	sent := chatMessage{From: "bob", Body: "exact bytes please"}
	var got chatMessage
	Register(r, "chat.message", func(msg chatMessage) { got = msg })

	require.NoError(t, r.Route(encode(t, "chat.message", sent)))
	assert.Equal(t, sent, got)
}

func TestRouteSelectsHandlerByType(t *testing.T) {
	r := New(nil)

	var chats, pings int
	Register(r, "chat.message", func(chatMessage) { chats++ })
	Register(r, "presence.ping", func(presencePing) { pings++ })

	require.NoError(t, r.Route(encode(t, "presence.ping", presencePing{Nick: "carol"})))
	require.NoError(t, r.Route(encode(t, "chat.message", chatMessage{From: "carol"})))
	require.NoError(t, r.Route(encode(t, "chat.message", chatMessage{From: "dave"})))

	assert.Equal(t, 2, chats)
	assert.Equal(t, 1, pings)
}

func TestLastRegistrationWins(t *testing.T) {
	r := New(nil)

	var first, second int
	Register(r, "presence.ping", func(presencePing) { first++ })
	Register(r, "presence.ping", func(presencePing) { second++ })

	require.NoError(t, r.Route(encode(t, "presence.ping", presencePing{Nick: "erin"})))

	assert.Zero(t, first, "replaced handler must not be invoked")
	assert.Equal(t, 1, second)
}

func TestRouteMalformedEnvelope(t *testing.T) {
	r := New(nil)
	Register(r, "chat.message", func(chatMessage) {})

	err := r.Route([]byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, wire.ErrMalformedEnvelope)
}

func TestRouteUnhandledType(t *testing.T) {
	r := New(nil)

	err := r.Route(encode(t, "telemetry.sample", presencePing{}))
	assert.ErrorIs(t, err, ErrUnhandledType)
}

func TestRoutePayloadDecodeFailure(t *testing.T) {
	r := New(nil)

	var invoked bool
	Register(r, "chat.message", func(chatMessage) { invoked = true })

	// A payload that is valid CBOR but not a chatMessage map.
	env := &wire.Envelope{Type: "chat.message"}
	raw, err := wire.Marshal("definitely not a struct")
	require.NoError(t, err)
	env.Payload = raw
	data, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)

	routeErr := r.Route(data)
	assert.ErrorIs(t, routeErr, ErrPayloadDecode)
	assert.False(t, invoked, "handler must not run on decode failure")
}

func TestDecodeFailureDoesNotAffectSubsequentMessages(t *testing.T) {
	r := New(nil)

	var delivered int
	Register(r, "chat.message", func(chatMessage) { delivered++ })

	require.Error(t, r.Route([]byte{0xff}))
	require.NoError(t, r.Route(encode(t, "chat.message", chatMessage{From: "frank"})))
	require.Error(t, r.Route(encode(t, "unknown.type", presencePing{})))
	require.NoError(t, r.Route(encode(t, "chat.message", chatMessage{From: "grace"})))

	assert.Equal(t, 2, delivered)
}

func TestRegisteredAndTypes(t *testing.T) {
	r := New(nil)
	Register(r, "chat.message", func(chatMessage) {})
	Register(r, "presence.ping", func(presencePing) {})

	assert.True(t, r.Registered("chat.message"))
	assert.False(t, r.Registered("telemetry.sample"))
	assert.Equal(t, []string{"chat.message", "presence.ping"}, r.Types())
}

func TestRegisterFuncRaw(t *testing.T) {
	r := New(nil)

	var raw []byte
	r.RegisterFunc("blob.transfer", func(payload []byte) error {
		raw = payload
		return nil
	})

	payload := []byte{0x01, 0x02, 0x03}
	env, err := wire.NewEnvelope("blob.transfer", payload)
	require.NoError(t, err)
	data, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)

	require.NoError(t, r.Route(data))

	var decoded []byte
	require.NoError(t, wire.Unmarshal(raw, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestHandlerErrorIsDiagnosticNotFatal(t *testing.T) {
	r := New(nil)

	boom := errors.New("handler rejected message")
	r.RegisterFunc("chat.message", func([]byte) error { return boom })

	err := r.Route(encode(t, "chat.message", chatMessage{}))
	assert.ErrorIs(t, err, boom)

	// Router stays usable.
	Register(r, "presence.ping", func(presencePing) {})
	assert.NoError(t, r.Route(encode(t, "presence.ping", presencePing{})))
}
