package office2pdf

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Rent retry backoff bounds. A rent that observes more live handles
// than the current pool size (the pool was shrunk underneath it)
// releases its permit and retries with doubling backoff instead of
// recursing; under sustained contention recursion depth would be
// unbounded.
const (
	rentRetryBase = 4 * time.Millisecond
	rentRetryMax  = 256 * time.Millisecond
)

// resolveMaxPoolSize derives the capacity cap from available
// parallelism. Every conversion worker carries a native process tree
// (LibreOffice profile or Chrome), so the ladder is deliberately
// conservative: 1 handle up to 2 cores, 2 up to 4, 3 up to 8, else 4.
// An explicit positive override wins.
func resolveMaxPoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	cores := runtime.GOMAXPROCS(0)
	switch {
	case cores <= 2:
		return 1
	case cores <= 4:
		return 2
	case cores <= 8:
		return 3
	default:
		return 4
	}
}

// PoolStats is a point-in-time snapshot of pool occupancy.
type PoolStats struct {
	MaxSize     int
	CurrentSize int
	Live        int // registered handles, idle + rented
	Idle        int
	Rented      int
}

// Pool is a bounded collection of conversion workers. A counting
// permit channel sized to maxSize gates total concurrency; workers
// are created lazily on the affinity worker thread they will stay
// bound to, and recycled once their use count wears out. Renters hold
// workers through per-rental Handle leases.
type Pool struct {
	maxSize int
	maxUses int
	factory converterFactory
	workers *AffinityPool
	log     *zap.Logger
	metrics *Metrics

	// permits holds one token per allowed concurrent rental. Acquire
	// by receive, release by send. It is the single source of truth
	// for live+rented capacity.
	permits chan struct{}

	mu          sync.Mutex
	currentSize int
	registry    map[int64]*slot
	idle        []*slot
	closed      bool

	nextID atomic.Int64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the pool's logger (default: no-op).
func WithPoolLogger(log *zap.Logger) PoolOption {
	return func(p *Pool) { p.log = log }
}

// WithPoolMetrics attaches metric collectors to the pool.
func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// WithMaxUses overrides how many conversions a handle runs before
// retirement. Zero or negative disables wear-out recycling.
func WithMaxUses(n int) PoolOption {
	return func(p *Pool) { p.maxUses = n }
}

// NewPool creates a pool capped at maxSize handles (see
// resolveMaxPoolSize for the derivation when sizing from cores) with
// its own affinity worker pool of the same size. The factory runs on
// the worker thread each new handle is bound to.
func NewPool(maxSize int, factory converterFactory, opts ...PoolOption) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}

	p := &Pool{
		maxSize:     maxSize,
		maxUses:     DefaultMaxUses,
		factory:     factory,
		workers:     NewAffinityPool(maxSize),
		log:         zap.NewNop(),
		permits:     make(chan struct{}, maxSize),
		currentSize: maxSize,
		registry:    make(map[int64]*slot),
	}

	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < maxSize; i++ {
		p.permits <- struct{}{}
	}

	return p
}

// Rent acquires a handle, suspending the caller until a permit is
// available or the context is cancelled. Every successful Rent holds
// exactly one permit until the handle is returned or disposed.
func (p *Pool) Rent(ctx context.Context) (*Handle, error) {
	backoff := rentRetryBase

	for {
		select {
		case <-p.permits:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		s, retry, err := p.tryCheckOut(ctx)
		if err != nil {
			p.permits <- struct{}{}
			return nil, err
		}
		if s != nil {
			p.metrics.rentedInc()
			return &Handle{s: s, pool: p}, nil
		}
		if !retry {
			// Unreachable today; kept so tryCheckOut's contract is
			// explicit about the three outcomes.
			p.permits <- struct{}{}
			return nil, ErrPoolClosed
		}

		// The pool shrank below its live-handle count. Give the
		// permit back and let the over-limit handles drain on their
		// own returns before trying again.
		p.permits <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > rentRetryMax {
			backoff = rentRetryMax
		}
	}
}

// tryCheckOut attempts one rental while the caller holds a permit.
// Outcomes: a rented slot, a retry signal (shrink observed), or an
// error.
func (p *Pool) tryCheckOut(ctx context.Context) (*slot, bool, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, false, ErrPoolClosed
	}

	// Pop an idle slot, evicting any that went stale in the set.
	for len(p.idle) > 0 {
		s := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if HandleState(s.state.Load()) == HandleIdle && !s.expired() {
			s.state.Store(int32(HandleRented))
			p.mu.Unlock()
			return s, false, nil
		}

		delete(p.registry, s.id)
		p.mu.Unlock()
		p.disposeSlot(s)
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, false, ErrPoolClosed
		}
	}

	// No idle slot. Creating one must not push the live count past
	// the current size; at or past it means the pool was shrunk while
	// handles are still out.
	if len(p.registry) >= p.currentSize {
		p.mu.Unlock()
		return nil, true, nil
	}

	id := p.nextID.Add(1)
	worker := p.workers.Assign()
	p.mu.Unlock()

	// Build the converter on the worker thread the slot will live on;
	// its native resources must never be touched anywhere else.
	var conv converter
	var factoryErr error
	if runErr := p.workers.Run(ctx, worker, func() {
		conv, factoryErr = p.factory()
	}); runErr != nil {
		return nil, false, runErr
	}
	if factoryErr != nil {
		return nil, false, fmt.Errorf("creating converter: %w", factoryErr)
	}

	s := &slot{
		id:      id,
		worker:  worker,
		conv:    conv,
		maxUses: p.maxUses,
	}
	s.state.Store(int32(HandleRented))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.disposeSlot(s)
		return nil, false, ErrPoolClosed
	}
	p.registry[id] = s
	p.mu.Unlock()

	p.log.Debug("handle created",
		zap.Int64("handle_id", id),
		zap.Int("worker", worker))

	return s, false, nil
}

// checkIn is the single return path for rented slots, reached via
// Handle.Return. Exactly one permit is released per successful rent
// regardless of which branch runs.
func (p *Pool) checkIn(s *slot) {
	p.mu.Lock()

	switch {
	case p.closed || HandleState(s.state.Load()) == HandleDisposed:
		delete(p.registry, s.id)
		p.mu.Unlock()
		p.disposeSlot(s)

	case len(p.registry) > p.currentSize || s.expired():
		// Pool-shrink or wear-out eviction.
		if s.expired() {
			s.state.Store(int32(HandleExpired))
			p.log.Debug("handle expired",
				zap.Int64("handle_id", s.id),
				zap.Int("uses", int(s.useCount.Load())))
		}
		delete(p.registry, s.id)
		p.mu.Unlock()
		p.disposeSlot(s)

	default:
		s.state.Store(int32(HandleIdle))
		p.idle = append(p.idle, s)
		p.mu.Unlock()
	}

	p.metrics.rentedDec()
	p.permits <- struct{}{}
}

// AdjustSize changes the target pool size, clamped to [1, maxSize].
// Shrinking disposes surplus idle handles immediately; rented handles
// over the new limit are disposed lazily on their own returns.
// Growing creates nothing eagerly; future rents fill the headroom.
func (p *Pool) AdjustSize(n int) {
	if n < 1 {
		n = 1
	}
	if n > p.maxSize {
		n = p.maxSize
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	old := p.currentSize
	p.currentSize = n

	var evicted []*slot
	for surplus := old - n; surplus > 0 && len(p.idle) > 0; surplus-- {
		s := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		delete(p.registry, s.id)
		evicted = append(evicted, s)
	}
	p.mu.Unlock()

	if old != n {
		p.log.Info("pool resized",
			zap.Int("from", old),
			zap.Int("to", n),
			zap.Int("idle_evicted", len(evicted)))
	}

	for _, s := range evicted {
		p.disposeSlot(s)
	}
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		MaxSize:     p.maxSize,
		CurrentSize: p.currentSize,
		Live:        len(p.registry),
		Idle:        len(p.idle),
		Rented:      len(p.registry) - len(p.idle),
	}
}

// Close disposes every registered handle, idle or not, then stops the
// worker threads. Safe to call more than once. Rents blocked on a
// permit fail with ErrPoolClosed on their next check-out attempt.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	slots := make([]*slot, 0, len(p.registry))
	for _, s := range p.registry {
		slots = append(slots, s)
	}
	p.registry = make(map[int64]*slot)
	p.idle = nil
	p.mu.Unlock()

	for _, s := range slots {
		p.disposeSlot(s)
	}

	p.workers.Close()
	p.log.Info("pool closed", zap.Int("handles_disposed", len(slots)))
}

// disposeSlot closes the slot's converter on its own worker thread.
// Failures are logged, never propagated: disposal is best-effort and
// the process guard backstops leaked workers.
func (p *Pool) disposeSlot(s *slot) {
	err := p.workers.Run(context.Background(), s.worker, func() {
		if closeErr := s.close(); closeErr != nil {
			p.log.Warn("handle close failed",
				zap.Int64("handle_id", s.id),
				zap.Error(closeErr))
		}
	})
	if err != nil {
		// Worker pool already gone; close inline as a last resort so
		// the native resource is not leaked outright.
		if closeErr := s.close(); closeErr != nil {
			p.log.Warn("inline handle close failed",
				zap.Int64("handle_id", s.id),
				zap.Error(closeErr))
		}
	}
}
