package office2pdf

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerStatus is an observability snapshot of the circuit breaker.
type BreakerStatus struct {
	Failures int
	Open     bool
	// RetryIn is the remaining time until the circuit auto-closes.
	// Zero when the circuit is closed.
	RetryIn time.Duration
}

// Breaker wraps conversion execution with fail-fast protection. After
// threshold consecutive failures it opens and rejects calls without
// invoking the operation; once breakDuration has elapsed past the
// last failure the open state is cleared lazily, on the first access
// that observes the elapsed window. There is no timer.
type Breaker struct {
	threshold     int
	breakDuration time.Duration
	log           *zap.Logger
	metrics       *Metrics

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	open        bool
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the breaker's logger (default: no-op).
func WithBreakerLogger(log *zap.Logger) BreakerOption {
	return func(b *Breaker) { b.log = log }
}

// WithBreakerMetrics attaches metric collectors to the breaker.
func WithBreakerMetrics(m *Metrics) BreakerOption {
	return func(b *Breaker) { b.metrics = m }
}

// NewBreaker creates a closed breaker. Non-positive threshold or
// duration fall back to the defaults (5 failures, 2 minutes).
func NewBreaker(threshold int, breakDuration time.Duration, opts ...BreakerOption) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if breakDuration <= 0 {
		breakDuration = DefaultBreakDuration
	}

	b := &Breaker{
		threshold:     threshold,
		breakDuration: breakDuration,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs op unless the circuit is open. The operation's own
// error is always propagated; a success resets the failure count, a
// failure increments it and opens the circuit at the threshold.
func (b *Breaker) Execute(op func() error) error {
	b.mu.Lock()
	if b.open {
		elapsed := time.Since(b.lastFailure)
		if elapsed <= b.breakDuration {
			remaining := b.breakDuration - elapsed
			b.mu.Unlock()
			return fmt.Errorf("%w: retry in %s", ErrCircuitOpen, remaining.Round(time.Second))
		}
		// Lazy auto-close: the break window elapsed, let this call
		// through. The failure count is kept so an immediate failure
		// re-opens the circuit.
		b.open = false
		b.metrics.breakerClosed()
		b.log.Info("circuit closed after break window",
			zap.Duration("break_duration", b.breakDuration))
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		return nil
	}

	b.failures++
	b.lastFailure = time.Now()
	if !b.open && b.failures >= b.threshold {
		b.open = true
		b.metrics.breakerOpened()
		b.log.Warn("circuit opened",
			zap.Int("failures", b.failures),
			zap.Duration("break_duration", b.breakDuration),
			zap.Error(err))
	}
	return err
}

// Reset is the manual override back to closed with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasOpen := b.open
	b.failures = 0
	b.lastFailure = time.Time{}
	b.open = false
	if wasOpen {
		b.metrics.breakerClosed()
		b.log.Info("circuit reset manually")
	}
}

// Status reports the current failure count, open flag, and remaining
// time until auto-close. Observing an elapsed window through Status
// also clears the open state, matching Execute's lazy transition.
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		elapsed := time.Since(b.lastFailure)
		if elapsed > b.breakDuration {
			b.open = false
			b.metrics.breakerClosed()
		} else {
			return BreakerStatus{
				Failures: b.failures,
				Open:     true,
				RetryIn:  b.breakDuration - elapsed,
			}
		}
	}

	return BreakerStatus{Failures: b.failures}
}
