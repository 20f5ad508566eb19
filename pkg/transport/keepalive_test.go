package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPulserConfigDefaults(t *testing.T) {
	config := DefaultPulserConfig()

	if config.Interval != DefaultKeepaliveInterval {
		t.Errorf("Interval = %v, want %v", config.Interval, DefaultKeepaliveInterval)
	}
	if config.Timeout != DefaultKeepaliveInterval {
		t.Errorf("Timeout = %v, want %v", config.Timeout, DefaultKeepaliveInterval)
	}

	// Zero config fields select defaults.
	p := NewPulser(PulserConfig{}, func(uint32) error { return nil }, nil)
	if p.config.Interval != DefaultKeepaliveInterval {
		t.Errorf("zero-value Interval = %v, want default", p.config.Interval)
	}
	if p.config.Timeout != DefaultKeepaliveInterval {
		t.Errorf("zero-value Timeout = %v, want interval", p.config.Timeout)
	}
}

func TestPulserSendsProbes(t *testing.T) {
	var pings atomic.Int32
	p := NewPulser(
		PulserConfig{Interval: 20 * time.Millisecond, Timeout: time.Hour},
		func(seq uint32) error {
			pings.Add(1)
			return nil
		},
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for pings.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d probes sent", pings.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPulserHealthyWithPongs(t *testing.T) {
	var unhealthy atomic.Int32

	var p *Pulser
	p = NewPulser(
		PulserConfig{Interval: 15 * time.Millisecond},
		func(seq uint32) error {
			// Peer acknowledges every probe promptly.
			p.PongReceived()
			return nil
		},
		func() { unhealthy.Add(1) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)

	if unhealthy.Load() != 0 {
		t.Errorf("unhealthy fired %d times with live peer", unhealthy.Load())
	}
	stats := p.Stats()
	if stats.LastPongTime.IsZero() {
		t.Error("no pong recorded")
	}
	if stats.CurrentSeq == 0 {
		t.Error("no probe sent")
	}
}

func TestPulserReportsUnhealthy(t *testing.T) {
	unhealthyCh := make(chan struct{})
	p := NewPulser(
		PulserConfig{Interval: 15 * time.Millisecond},
		func(seq uint32) error { return nil }, // Peer never answers
		func() { close(unhealthyCh) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	select {
	case <-unhealthyCh:
	case <-time.After(2 * time.Second):
		t.Fatal("unhealthy never reported for a silent peer")
	}

	// The pulser stops itself after reporting.
	time.Sleep(50 * time.Millisecond)
	if p.IsRunning() {
		t.Error("pulser still running after unhealthy report")
	}
}

func TestPulserReportsUnhealthyTimeoutLongerThanInterval(t *testing.T) {
	// Several probes go out before the timeout window closes; the window
	// is anchored to the first unacknowledged probe, not the latest one.
	unhealthyCh := make(chan struct{})
	p := NewPulser(
		PulserConfig{Interval: 20 * time.Millisecond, Timeout: 50 * time.Millisecond},
		func(seq uint32) error { return nil }, // Peer never answers
		func() { close(unhealthyCh) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	select {
	case <-unhealthyCh:
	case <-time.After(2 * time.Second):
		t.Fatal("unhealthy never reported with timeout longer than interval")
	}
}

func TestPulserPongReanchorsTimeoutWindow(t *testing.T) {
	// An acknowledged probe closes the window; the next window starts at
	// the next probe, so a live peer is never flagged.
	var unhealthy atomic.Int32

	var p *Pulser
	p = NewPulser(
		PulserConfig{Interval: 15 * time.Millisecond, Timeout: 40 * time.Millisecond},
		func(seq uint32) error {
			p.PongReceived()
			return nil
		},
		func() { unhealthy.Add(1) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	time.Sleep(150 * time.Millisecond)

	if unhealthy.Load() != 0 {
		t.Errorf("unhealthy fired %d times with live peer", unhealthy.Load())
	}
}

func TestPulserStopsCleanly(t *testing.T) {
	var pings atomic.Int32
	p := NewPulser(
		PulserConfig{Interval: 10 * time.Millisecond, Timeout: time.Hour},
		func(seq uint32) error {
			pings.Add(1)
			return nil
		},
		nil,
	)

	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	p.Stop()
	p.Stop() // Idempotent

	count := pings.Load()
	time.Sleep(50 * time.Millisecond)
	if pings.Load() != count {
		t.Error("probe sent after Stop")
	}
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestPulserStartIdempotent(t *testing.T) {
	p := NewPulser(
		PulserConfig{Interval: time.Hour},
		func(uint32) error { return nil },
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Start(ctx) // No second loop
	defer p.Stop()

	if !p.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
}

func TestProbeSeqRoundTrip(t *testing.T) {
	for _, seq := range []uint32{0, 1, 42, 1 << 30} {
		if got := DecodeProbeSeq(EncodeProbeSeq(seq)); got != seq {
			t.Errorf("DecodeProbeSeq(EncodeProbeSeq(%d)) = %d", seq, got)
		}
	}
	if got := DecodeProbeSeq([]byte{0x01}); got != 0 {
		t.Errorf("short payload decoded to %d, want 0", got)
	}
}
