package reachability

// Status represents the host's network path state.
type Status uint8

const (
	// StatusSatisfied indicates a usable network path exists.
	StatusSatisfied Status = iota

	// StatusUnsatisfied indicates no usable network path exists.
	StatusUnsatisfied

	// StatusRequiresConnection indicates a path could exist but needs an
	// on-demand connection first (captive portal, dial-on-demand VPN).
	StatusRequiresConnection
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSatisfied:
		return "SATISFIED"
	case StatusUnsatisfied:
		return "UNSATISFIED"
	case StatusRequiresConnection:
		return "REQUIRES_CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// Usable reports whether the path can carry traffic right now.
// RequiresConnection counts as unusable: a gated path cannot carry the
// stream until something else brings it up.
func (s Status) Usable() bool {
	return s == StatusSatisfied
}
