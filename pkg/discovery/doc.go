// Package discovery implements mDNS/DNS-SD discovery of wavelink endpoints.
//
// Endpoints advertise the service type _wavelink._tcp. The instance name
// is the endpoint's display name. TXT records carry:
//
//   - path: the WebSocket request path (default "/")
//   - ver:  the wavelink protocol version
//   - name: an optional human-readable endpoint description
//   - tls:  "1" when the endpoint expects wss
//
// Clients browse for endpoints on the local network and build a ws:// or
// wss:// URI from the resolved address, port, and TXT path. Discovery is
// a convenience for the demo tooling; sessions connect to any explicit
// URI without it.
package discovery
