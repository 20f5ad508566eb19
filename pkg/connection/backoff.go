package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff constants for the default reconnection policy.
const (
	// InitialBackoff is the initial reconnection delay.
	InitialBackoff = 1 * time.Second

	// MaxBackoff is the maximum reconnection delay.
	MaxBackoff = 60 * time.Second

	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier = 2.0
)

// Policy maps a retry attempt number (0-based) to a wait duration.
// Implementations must be safe for concurrent use and must return a
// non-negative duration.
type Policy interface {
	// Delay returns the wait before attempt number attempt (0-based).
	Delay(attempt int) time.Duration
}

// ImmediatePolicy retries without waiting. Useful for tests and for
// links where the transport itself rate-limits connection attempts.
type ImmediatePolicy struct{}

// Delay returns zero for every attempt.
func (ImmediatePolicy) Delay(int) time.Duration { return 0 }

// FixedPolicy waits the same interval before every attempt.
type FixedPolicy struct {
	// Interval is the wait before each attempt.
	Interval time.Duration
}

// Delay returns the fixed interval.
func (p FixedPolicy) Delay(int) time.Duration {
	if p.Interval < 0 {
		return 0
	}
	return p.Interval
}

// ExponentialPolicy doubles the delay per attempt up to a ceiling,
// optionally adding random jitter.
type ExponentialPolicy struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Ceiling caps the delay.
	Ceiling time.Duration

	// Jitter is the maximum jitter as a fraction of the base delay
	// (0 disables jitter).
	Jitter float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExponentialPolicy creates an exponential policy without jitter.
// Non-positive base or ceiling select the defaults (1s, 60s).
func NewExponentialPolicy(base, ceiling time.Duration) *ExponentialPolicy {
	return NewExponentialPolicyWithJitter(base, ceiling, 0)
}

// NewExponentialPolicyWithJitter creates an exponential policy with the
// given jitter fraction.
func NewExponentialPolicyWithJitter(base, ceiling time.Duration, jitter float64) *ExponentialPolicy {
	if base <= 0 {
		base = InitialBackoff
	}
	if ceiling <= 0 {
		ceiling = MaxBackoff
	}
	if jitter < 0 {
		jitter = 0
	}
	return &ExponentialPolicy{
		Base:    base,
		Ceiling: ceiling,
		Jitter:  jitter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns min(base * 2^attempt, ceiling), plus jitter if configured.
func (p *ExponentialPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.Base
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * BackoffMultiplier)
		if delay >= p.Ceiling {
			delay = p.Ceiling
			break
		}
	}
	if delay > p.Ceiling {
		delay = p.Ceiling
	}

	return delay + p.jitterFor(delay)
}

// jitterFor returns a random jitter in [0, delay*Jitter).
func (p *ExponentialPolicy) jitterFor(delay time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(float64(delay) * p.Jitter * p.rng.Float64())
}

// Sequence returns the first n delays of the policy. Useful for
// documentation and tests.
func Sequence(p Policy, n int) []time.Duration {
	seq := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		seq = append(seq, p.Delay(i))
	}
	return seq
}

// DefaultPolicy returns the default reconnection policy:
// exponential, base 1s, ceiling 60s, no jitter.
func DefaultPolicy() Policy {
	return NewExponentialPolicy(InitialBackoff, MaxBackoff)
}

// Compile-time interface satisfaction checks.
var (
	_ Policy = ImmediatePolicy{}
	_ Policy = FixedPolicy{}
	_ Policy = (*ExponentialPolicy)(nil)
)
