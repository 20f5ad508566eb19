package connection

import (
	"context"
	"sync"
	"time"

	"github.com/wavelink-protocol/wavelink-go/pkg/reachability"
)

// DefaultMaxAttempts is the default reconnection attempt limit.
const DefaultMaxAttempts = 5

// DefaultConnectTimeout bounds a single reconnection attempt.
const DefaultConnectTimeout = 30 * time.Second

// ConnectFunc is called to establish a connection.
// It should return nil on success or an error on failure. The supervisor
// relies on the caller invoking NotifyConnected from within a successful
// ConnectFunc (or immediately after), so the attempt counter resets.
type ConnectFunc func(ctx context.Context) error

// SupervisorConfig configures a reconnection supervisor.
type SupervisorConfig struct {
	// MaxAttempts is the number of consecutive failed attempts after
	// which the supervisor gives up (default 5).
	MaxAttempts int

	// Policy computes the wait before each attempt (default exponential
	// 1s..60s).
	Policy Policy

	// ConnectTimeout bounds a single connection attempt (default 30s).
	ConnectTimeout time.Duration

	// Monitor gates retries on network reachability. Optional; when nil
	// retries fire purely on the backoff schedule.
	Monitor reachability.Monitor
}

// Supervisor decides whether, and after what delay, to retry after an
// unplanned disconnect. It owns the attempt counter and the pending retry
// timer. All scheduling runs on a single background goroutine so retry
// sequences never interleave.
type Supervisor struct {
	mu sync.Mutex

	cfg     SupervisorConfig
	connect ConnectFunc

	// attempts is the consecutive failed-attempt counter. Reset on
	// successful connection.
	attempts int

	// shouldReconnect is false only after explicit disconnect or
	// exhaustion; unexpected disconnects are retried while true.
	shouldReconnect bool

	// connected mirrors the facade's view of the link.
	connected bool

	// pending cancels the in-flight retry wait when closed.
	pending chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// retryCh signals that a retry sequence should run.
	retryCh chan struct{}

	// immediateCh signals a network-recovery attempt that bypasses
	// backoff and does not consume the attempt budget.
	immediateCh chan struct{}

	// networkUpCh cuts a pending wait short when the path recovers.
	networkUpCh chan struct{}

	// Callbacks
	onExhausted      func()
	onRetryScheduled func(attempt int, delay time.Duration)
}

// NewSupervisor creates a reconnection supervisor driving connectFn.
func NewSupervisor(cfg SupervisorConfig, connectFn ConnectFunc) *Supervisor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		cfg:         cfg,
		connect:     connectFn,
		ctx:         ctx,
		cancel:      cancel,
		retryCh:     make(chan struct{}, 1),
		immediateCh: make(chan struct{}, 1),
		networkUpCh: make(chan struct{}, 1),
	}
}

// OnExhausted sets a callback fired when the attempt limit is reached.
// Must be set before Start.
func (s *Supervisor) OnExhausted(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExhausted = fn
}

// OnRetryScheduled sets a callback fired when a retry is scheduled.
// Must be set before Start.
func (s *Supervisor) OnRetryScheduled(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetryScheduled = fn
}

// Start launches the background retry goroutine.
// Must be called once before reconnection will work.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go s.run()
}

// Close shuts the supervisor down, cancelling any pending retry.
func (s *Supervisor) Close() {
	s.cancelPending()
	s.cancel()
	s.wg.Wait()
}

// Attempts returns the consecutive failed-attempt counter.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// ShouldReconnect reports whether unexpected disconnects trigger retries.
func (s *Supervisor) ShouldReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldReconnect
}

// SetShouldReconnect sets the reconnect intent. The facade sets it true
// on explicit connect and false on explicit disconnect. Clearing the flag
// cancels any pending retry.
func (s *Supervisor) SetShouldReconnect(enabled bool) {
	s.mu.Lock()
	s.shouldReconnect = enabled
	s.mu.Unlock()

	if !enabled {
		s.cancelPending()
	}
}

// NotifyConnected records a successful transition to connected and
// resets the attempt counter.
func (s *Supervisor) NotifyConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.attempts = 0
}

// ConnectionLost records an unplanned disconnect and, if reconnect intent
// is set, triggers a retry sequence.
func (s *Supervisor) ConnectionLost() {
	s.mu.Lock()
	s.connected = false
	trigger := s.shouldReconnect
	s.mu.Unlock()

	if trigger {
		s.triggerRetry()
	}
}

// ConnectionSuspended records a network-caused disconnect. Unlike
// ConnectionLost it does not schedule a backoff retry and does not
// consume the attempt budget: the link comes back via the
// network-recovery path once the path is satisfied again.
func (s *Supervisor) ConnectionSuspended() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}

// ResetAttempts clears the consecutive failed-attempt counter. The
// facade calls this on explicit connect so a fresh attempt budget
// applies after a previous exhaustion.
func (s *Supervisor) ResetAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
}

// NetworkStatusChanged feeds a reachability change into the supervisor.
// On recovery it cuts any pending backoff wait short and, if the link
// should be up but is not, triggers an immediate attempt that bypasses
// the backoff wait (the failure was network-caused, not server-caused).
func (s *Supervisor) NetworkStatusChanged(status reachability.Status) {
	if !status.Usable() {
		return
	}

	select {
	case s.networkUpCh <- struct{}{}:
	default:
	}

	s.mu.Lock()
	trigger := s.shouldReconnect && !s.connected
	s.mu.Unlock()

	if trigger {
		select {
		case s.immediateCh <- struct{}{}:
		default:
		}
	}
}

// triggerRetry signals the run goroutine; a pending signal coalesces.
func (s *Supervisor) triggerRetry() {
	select {
	case s.retryCh <- struct{}{}:
	default:
		// Already pending
	}
}

// cancelPending aborts the in-flight retry wait, if any.
func (s *Supervisor) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
}

// newPending arms the cancellation channel for one retry wait.
func (s *Supervisor) newPending() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(chan struct{})
	return s.pending
}

// clearPending disarms the cancellation channel after a wait completes.
func (s *Supervisor) clearPending(ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == ch {
		s.pending = nil
	}
}

// run handles retry signals on a single goroutine.
func (s *Supervisor) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.retryCh:
			s.retrySequence()
		case <-s.immediateCh:
			s.attemptNow()
		}
	}
}

// attemptNow performs one immediate attempt after network recovery.
// On failure it falls back to the normal backoff-driven sequence.
func (s *Supervisor) attemptNow() {
	s.mu.Lock()
	if !s.shouldReconnect || s.connected {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
	err := s.connect(ctx)
	cancel()

	if err != nil {
		s.retrySequence()
	}
}

// retrySequence performs attempts until connected, cancelled, or exhausted.
func (s *Supervisor) retrySequence() {
	for {
		s.mu.Lock()
		if !s.shouldReconnect || s.connected {
			s.mu.Unlock()
			return
		}
		if s.attempts >= s.cfg.MaxAttempts {
			// Give up until the next explicit connect.
			s.shouldReconnect = false
			exhausted := s.onExhausted
			s.mu.Unlock()

			if exhausted != nil {
				exhausted()
			}
			return
		}
		attempt := s.attempts
		s.attempts++
		scheduled := s.onRetryScheduled
		s.mu.Unlock()

		delay := s.cfg.Policy.Delay(attempt)
		if delay < 0 {
			delay = 0
		}

		if scheduled != nil {
			scheduled(attempt+1, delay)
		}

		if !s.waitBackoff(delay) {
			return
		}

		// Defer the attempt while the network path is down; a doomed
		// dial would just burn an attempt.
		if !s.waitForNetwork() {
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
		err := s.connect(ctx)
		cancel()

		if err == nil {
			return
		}
		// Failed - continue with the next backoff step.
	}
}

// waitBackoff waits the backoff delay. Returns false if the wait was
// cancelled or the supervisor is shutting down. A network-recovery signal
// cuts the wait short.
func (s *Supervisor) waitBackoff(delay time.Duration) bool {
	if delay == 0 {
		return true
	}

	cancelCh := s.newPending()
	defer s.clearPending(cancelCh)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return false
	case <-cancelCh:
		return false
	case <-s.networkUpCh:
		return true
	case <-timer.C:
		return true
	}
}

// waitForNetwork blocks until the network path is usable. Returns false
// if cancelled. Without a monitor it returns immediately.
func (s *Supervisor) waitForNetwork() bool {
	if s.cfg.Monitor == nil {
		return true
	}

	for !s.cfg.Monitor.Status().Usable() {
		cancelCh := s.newPending()

		// Poll as a backstop in case a recovery signal was consumed
		// by a concurrent backoff wait.
		timer := time.NewTimer(time.Second)

		select {
		case <-s.ctx.Done():
			timer.Stop()
			s.clearPending(cancelCh)
			return false
		case <-cancelCh:
			timer.Stop()
			return false
		case <-s.networkUpCh:
			timer.Stop()
		case <-timer.C:
		}
		s.clearPending(cancelCh)
	}
	return true
}
