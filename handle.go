package office2pdf

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// HandleState tracks a pooled converter through its lifecycle.
type HandleState int32

// Lifecycle states. A converter whose use count reaches its limit
// transitions to Expired on return and is never rented again.
const (
	HandleIdle HandleState = iota
	HandleRented
	HandleExpired
	HandleDisposed
)

// String returns the state name for logging.
func (s HandleState) String() string {
	switch s {
	case HandleIdle:
		return "idle"
	case HandleRented:
		return "rented"
	case HandleExpired:
		return "expired"
	case HandleDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// slot is the pooled record for one native conversion worker: its
// identity, worker-thread binding, wear count, and lifecycle state.
// Slots outlive individual rentals; renters only ever see them
// through a Handle lease.
type slot struct {
	id     int64
	worker int
	conv   converter

	// useCount is written only while the slot is exclusively owned by
	// one renter or by the pool under its lock, but read by
	// Stats/logging from other goroutines, hence atomic.
	useCount atomic.Int64
	maxUses  int

	state atomic.Int32

	closeOnce sync.Once
	closeErr  error
}

// expired reports whether the slot has worn out its converter.
func (s *slot) expired() bool {
	return s.maxUses > 0 && int(s.useCount.Load()) >= s.maxUses
}

// close disposes the underlying converter exactly once. Must run on
// the slot's worker thread.
func (s *slot) close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(HandleDisposed))
		s.closeErr = s.conv.Close()
	})
	return s.closeErr
}

// Handle is one rental of a pooled conversion worker. Every Rent
// hands out a fresh Handle, so a stale Return or Convert through a
// lease from an earlier rental can never touch the converter while a
// later renter owns it. The converter is only ever invoked on the
// affinity worker thread it was created on.
type Handle struct {
	s    *slot
	pool *Pool

	// returned guards Return idempotency for this lease.
	returned atomic.Bool
}

// ID returns the pooled worker's pool-unique id. The id is stable
// across rentals of the same worker.
func (h *Handle) ID() int64 { return h.s.id }

// UseCount returns how many conversions this worker has run.
func (h *Handle) UseCount() int { return int(h.s.useCount.Load()) }

// State returns the worker's current lifecycle state.
func (h *Handle) State() HandleState { return HandleState(h.s.state.Load()) }

// Convert runs one conversion on the worker thread the converter is
// bound to. The progress callback fires before and after the blocking
// native call. A failure inside the primitive is returned both ways:
// as a typed Result with Success=false, and as an error wrapping
// ErrConversion so the caller can report it to the circuit breaker.
func (h *Handle) Convert(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	if h.returned.Load() {
		return nil, fmt.Errorf("%w: handle %d", ErrHandleNotRented, h.s.id)
	}
	switch h.State() {
	case HandleDisposed, HandleExpired:
		return nil, fmt.Errorf("%w: handle %d", ErrHandleDisposed, h.s.id)
	case HandleRented:
	default:
		return nil, fmt.Errorf("%w: handle %d is %s", ErrHandleNotRented, h.s.id, h.State())
	}

	h.s.useCount.Add(1)

	if onProgress != nil {
		onProgress(Progress{Stage: StageStarting, InputPath: req.InputPath, HandleID: h.s.id})
	}

	var convErr error
	runErr := h.pool.workers.Run(ctx, h.s.worker, func() {
		convErr = h.s.conv.Convert(ctx, req.InputPath, req.OutputPath)
	})

	if onProgress != nil {
		onProgress(Progress{Stage: StageFinished, InputPath: req.InputPath, HandleID: h.s.id})
	}

	if runErr != nil {
		return nil, runErr
	}
	if convErr != nil {
		return &Result{
			Success:    false,
			OutputPath: req.OutputPath,
			Message:    convErr.Error(),
		}, convErr
	}

	return &Result{Success: true, OutputPath: req.OutputPath}, nil
}

// Return gives the worker back to the pool. Idempotent per lease: the
// first call checks the worker in, every later call on the same lease
// is a no-op, even after the worker has been rented out again.
func (h *Handle) Return() {
	if !h.returned.CompareAndSwap(false, true) {
		return
	}
	h.pool.checkIn(h.s)
}
