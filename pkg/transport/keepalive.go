package transport

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"
)

// Keepalive constants.
const (
	// DefaultKeepaliveInterval is the default interval between probes.
	DefaultKeepaliveInterval = 30 * time.Second
)

// PulserConfig configures keepalive behavior.
type PulserConfig struct {
	// Interval is the interval between liveness probes.
	Interval time.Duration

	// Timeout is how long a probe may remain unacknowledged before the
	// session is flagged unhealthy. Defaults to one interval.
	Timeout time.Duration
}

// DefaultPulserConfig returns the default keepalive configuration.
func DefaultPulserConfig() PulserConfig {
	return PulserConfig{
		Interval: DefaultKeepaliveInterval,
		Timeout:  DefaultKeepaliveInterval,
	}
}

// Pulser periodically probes the active session for liveness.
// Probes carry a sequence number, but any acknowledgement observed inside
// the timeout window counts as liveness evidence; strict request/response
// pairing is not attempted.
type Pulser struct {
	config PulserConfig

	// Callbacks
	sendPing    func(seq uint32) error
	onUnhealthy func()

	// State
	sequence atomic.Uint32

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	pongCh       chan struct{}
	lastPingTime time.Time
	lastPongTime time.Time
	awaitingPong bool
	// awaitingSince is when the oldest unacknowledged probe was sent.
	// Re-probes do not move it, so the timeout measures total silence.
	awaitingSince time.Time
}

// NewPulser creates a keepalive pulser. sendPing transmits a probe over
// the current session; onUnhealthy is invoked once when a probe goes
// unacknowledged past the timeout.
func NewPulser(config PulserConfig, sendPing func(seq uint32) error, onUnhealthy func()) *Pulser {
	if config.Interval <= 0 {
		config.Interval = DefaultKeepaliveInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}

	return &Pulser{
		config:      config,
		sendPing:    sendPing,
		onUnhealthy: onUnhealthy,
		stopCh:      make(chan struct{}),
		pongCh:      make(chan struct{}, 1),
	}
}

// Start begins the keepalive loop. No-op if already running.
func (p *Pulser) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.loop(ctx, stopCh)
}

// Stop stops the keepalive loop. Safe to call multiple times; after Stop
// no further probes are sent.
func (p *Pulser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.running = false
	close(p.stopCh)
}

// PongReceived should be called when any acknowledgement arrives.
func (p *Pulser) PongReceived() {
	select {
	case p.pongCh <- struct{}{}:
	default:
		// Signal already pending
	}
}

// IsRunning returns true if the keepalive loop is active.
func (p *Pulser) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// PulserStats contains keepalive statistics.
type PulserStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	CurrentSeq   uint32
}

// Stats returns current keepalive statistics.
func (p *Pulser) Stats() PulserStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PulserStats{
		LastPingTime: p.lastPingTime,
		LastPongTime: p.lastPongTime,
		CurrentSeq:   p.sequence.Load(),
	}
}

// loop is the main keepalive loop.
func (p *Pulser) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Send initial probe
	p.sendProbe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if !p.handleTick() {
				return
			}
		case <-p.pongCh:
			p.handlePong()
		}
	}
}

// sendProbe sends a probe and records the time.
func (p *Pulser) sendProbe() {
	seq := p.sequence.Add(1)

	p.mu.Lock()
	p.lastPingTime = time.Now()
	if !p.awaitingPong {
		p.awaitingPong = true
		p.awaitingSince = p.lastPingTime
	}
	p.mu.Unlock()

	if err := p.sendPing(seq); err != nil {
		// Send failed - the connection is likely dead; the timeout on
		// the next tick reports it.
		return
	}
}

// handleTick checks the oldest unacknowledged probe and sends the next
// one. Returns false when the session was flagged unhealthy.
func (p *Pulser) handleTick() bool {
	p.mu.Lock()
	expired := p.awaitingPong && time.Since(p.awaitingSince) >= p.config.Timeout
	if expired {
		p.awaitingPong = false
		p.running = false
	}
	p.mu.Unlock()

	if expired {
		if p.onUnhealthy != nil {
			p.onUnhealthy()
		}
		return false
	}

	p.sendProbe()
	return true
}

// handlePong records an acknowledgement.
func (p *Pulser) handlePong() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPongTime = time.Now()
	p.awaitingPong = false
}

// EncodeProbeSeq encodes a probe sequence number as a ping payload.
func EncodeProbeSeq(seq uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, seq)
	return buf
}

// DecodeProbeSeq decodes a ping payload back to a sequence number.
// Returns 0 for payloads that do not carry one.
func DecodeProbeSeq(payload []byte) uint32 {
	if len(payload) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(payload[:4])
}
