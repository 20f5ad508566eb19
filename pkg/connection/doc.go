// Package connection provides connection lifecycle primitives for wavelink.
//
// This package handles:
//   - Connection state tracking and transition validation
//   - Backoff policies for reconnection attempts
//   - The reconnection supervisor (attempt counting, retry scheduling,
//     reachability gating, exhaustion)
//
// # Reconnection Strategy
//
// When a connection is lost unexpectedly, the supervisor retries with the
// configured backoff policy. The default is exponential:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Stop after the configured attempt limit (default 5) and surface
//     exhaustion; a new explicit connect is required afterwards
//  5. Reset the attempt counter on successful connection
//
// # Reachability Gating
//
// A scheduled retry that fires while the network path is unsatisfied is
// deferred until the path is satisfied again, so attempts are not wasted
// on a host without connectivity. When the path recovers, the pending
// wait is cut short and the attempt fires immediately.
//
// # Jitter
//
// The exponential policy can add random jitter to prevent thundering herd
// when many clients reconnect at once:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// Jitter is disabled by default so consecutive delays are monotonically
// non-decreasing.
package connection
