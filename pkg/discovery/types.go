package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type for wavelink endpoints.
	ServiceType = "_wavelink._tcp"

	// Domain is the DNS-SD domain.
	Domain = "local."

	// DefaultPort is the default wavelink endpoint port.
	DefaultPort = 8473

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the maximum mDNS instance name length.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyVersion = "ver"
	TXTKeyName    = "name"
	TXTKeyTLS     = "tls"
)

// Discovery errors.
var (
	// ErrMissingRequired indicates a required TXT record is absent.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrInvalidTXTRecord indicates a TXT record could not be parsed.
	ErrInvalidTXTRecord = errors.New("invalid TXT record")

	// ErrNotFound indicates no matching endpoint was discovered.
	ErrNotFound = errors.New("endpoint not found")

	// ErrInstanceNameTooLong indicates the instance name exceeds mDNS limits.
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// EndpointInfo describes the endpoint an advertiser announces.
type EndpointInfo struct {
	// InstanceName is the mDNS instance name (required).
	InstanceName string

	// Port is the endpoint's listen port (0 selects DefaultPort).
	Port uint16

	// Path is the WebSocket request path (default "/").
	Path string

	// Version is the wavelink protocol version string.
	Version string

	// Name is an optional human-readable description.
	Name string

	// TLS indicates the endpoint expects wss.
	TLS bool
}

// EndpointService is a discovered wavelink endpoint.
type EndpointService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the resolved hostname.
	Host string

	// Port is the endpoint port.
	Port uint16

	// Addresses are the resolved IP addresses (IPv4 and IPv6).
	Addresses []string

	// Path is the WebSocket request path.
	Path string

	// Version is the advertised protocol version.
	Version string

	// Name is the human-readable description, if advertised.
	Name string

	// TLS indicates the endpoint expects wss.
	TLS bool
}

// URL builds a connectable ws:// or wss:// URI for the endpoint, preferring
// the first resolved address over the hostname.
func (s *EndpointService) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if host == "" {
		return ""
	}

	scheme := "ws"
	if s.TLS {
		scheme = "wss"
	}

	path := s.Path
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(s.Port))), path)
}
