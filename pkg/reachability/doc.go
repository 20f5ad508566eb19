// Package reachability reports whether a usable network path exists.
//
// The session layer uses reachability to avoid wasting reconnection
// attempts while the host has no connectivity: the reconnection
// supervisor defers retries while the path is unsatisfied and reconnects
// promptly once it becomes satisfied again.
//
// Two monitors are provided:
//
//   - InterfaceMonitor polls the host's network interfaces and derives a
//     satisfied/unsatisfied status from the presence of a routable address.
//   - ManualMonitor is driven programmatically. Use it in tests, or to
//     bridge a platform-specific connectivity signal.
package reachability
