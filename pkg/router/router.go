package router

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wavelink-protocol/wavelink-go/pkg/log"
	"github.com/wavelink-protocol/wavelink-go/pkg/wire"
)

// Routing errors. All are per-message diagnostics; none terminate the
// session.
var (
	// ErrUnhandledType indicates no handler is registered for the
	// envelope's type.
	ErrUnhandledType = errors.New("no handler registered for type")

	// ErrPayloadDecode indicates the payload could not be decoded into
	// the handler's declared type.
	ErrPayloadDecode = errors.New("payload decode failed")
)

// Handler decodes an envelope payload and invokes application code.
type Handler func(payload []byte) error

// Router dispatches envelopes to handlers by type identifier.
// Registration happens at setup time; during steady-state operation the
// registry is effectively read-only.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   log.Logger
}

// New creates a router. A nil logger disables diagnostics.
func New(logger log.Logger) *Router {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Router{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// RegisterFunc registers a raw handler for a type identifier.
// Registering the same type again replaces the prior handler.
func (r *Router) RegisterFunc(typeID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typeID] = h
}

// Register registers a typed handler for typeID. The payload is decoded
// into T before fn is invoked; decode failures are reported per-message
// and do not reach fn.
func Register[T any](r *Router, typeID string, fn func(msg T)) {
	r.RegisterFunc(typeID, func(payload []byte) error {
		var msg T
		if err := wire.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: type %q: %v", ErrPayloadDecode, typeID, err)
		}
		fn(msg)
		return nil
	})
}

// Registered reports whether a handler exists for typeID.
func (r *Router) Registered(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[typeID]
	return ok
}

// Types returns the registered type identifiers, sorted.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Route decodes the envelope in data and dispatches it to the handler
// registered for its type. The returned error classifies a dropped
// message (wire.ErrMalformedEnvelope, ErrUnhandledType, ErrPayloadDecode);
// callers log it and move on, they never tear the session down for it.
func (r *Router) Route(data []byte) error {
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		r.logger.Log(log.NewErrorEvent("", log.LayerWire, err, "route"))
		return err
	}

	r.mu.RLock()
	handler, ok := r.handlers[env.Type]
	r.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnhandledType, env.Type)
		r.logger.Log(log.NewErrorEvent("", log.LayerWire, err, "route"))
		return err
	}

	if err := handler(env.Payload); err != nil {
		r.logger.Log(log.NewErrorEvent("", log.LayerWire, err, "dispatch"))
		return err
	}

	r.logger.Log(log.NewMessageEvent("", log.DirectionIn, env.Type, len(env.Payload)))
	return nil
}
