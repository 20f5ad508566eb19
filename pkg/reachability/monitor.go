package reachability

import (
	"context"
	"net"
	"sync"
	"time"
)

// DefaultPollInterval is the default interface poll interval.
const DefaultPollInterval = 5 * time.Second

// Monitor observes the host's network path.
// Implementations must be safe for concurrent use.
type Monitor interface {
	// Status returns the current network path status.
	Status() Status

	// OnChange sets a callback invoked whenever the status changes.
	// Must be set before Start.
	OnChange(fn func(Status))

	// Start begins monitoring. The monitor stops when ctx is cancelled
	// or Stop is called.
	Start(ctx context.Context)

	// Stop stops monitoring.
	Stop()
}

// ManualMonitor is a Monitor driven by explicit SetStatus calls.
// Use it in tests or to feed a platform connectivity signal into the
// session layer.
type ManualMonitor struct {
	mu       sync.Mutex
	status   Status
	onChange func(Status)
}

// NewManualMonitor creates a manual monitor with the given initial status.
func NewManualMonitor(initial Status) *ManualMonitor {
	return &ManualMonitor{status: initial}
}

// Status returns the current status.
func (m *ManualMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnChange sets the status-change callback.
func (m *ManualMonitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// SetStatus updates the status, invoking the callback if it changed.
func (m *ManualMonitor) SetStatus(status Status) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(status)
	}
}

// Start is a no-op; the monitor is driven by SetStatus.
func (m *ManualMonitor) Start(context.Context) {}

// Stop is a no-op.
func (m *ManualMonitor) Stop() {}

// InterfaceMonitor derives reachability from the host's network
// interfaces: the path is satisfied when at least one non-loopback
// interface is up and carries an address.
type InterfaceMonitor struct {
	mu       sync.Mutex
	status   Status
	onChange func(Status)
	interval time.Duration
	running  bool
	stopCh   chan struct{}

	// probe is swappable for tests.
	probe func() Status
}

// NewInterfaceMonitor creates an interface-polling monitor.
// A non-positive interval selects DefaultPollInterval.
func NewInterfaceMonitor(interval time.Duration) *InterfaceMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	m := &InterfaceMonitor{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	m.probe = probeInterfaces
	m.status = m.probe()
	return m
}

// Status returns the most recently observed status.
func (m *InterfaceMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnChange sets the status-change callback.
func (m *InterfaceMonitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Start begins polling in a background goroutine.
func (m *InterfaceMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	go m.loop(ctx, stopCh)
}

// Stop stops polling.
func (m *InterfaceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

func (m *InterfaceMonitor) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *InterfaceMonitor) poll() {
	status := m.probe()

	m.mu.Lock()
	if status == m.status {
		m.mu.Unlock()
		return
	}
	m.status = status
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(status)
	}
}

// probeInterfaces checks for an up, non-loopback interface with an address.
func probeInterfaces() Status {
	ifaces, err := net.Interfaces()
	if err != nil {
		return StatusUnsatisfied
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return StatusSatisfied
	}
	return StatusUnsatisfied
}

// Compile-time interface satisfaction checks.
var (
	_ Monitor = (*ManualMonitor)(nil)
	_ Monitor = (*InterfaceMonitor)(nil)
)
