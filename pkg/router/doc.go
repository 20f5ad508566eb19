// Package router dispatches inbound envelopes to typed handlers.
//
// Product code registers a decode-and-invoke handler per envelope type
// before the session starts receiving; registering the same type again
// replaces the prior handler (last registration wins). Routing failures
// are diagnostics, never fatal: a malformed envelope, an unregistered
// type, or an undecodable payload is logged and skipped, and routing of
// subsequent messages is unaffected.
package router
