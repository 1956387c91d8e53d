package office2pdf

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend failure")

func failingOp() error { return errBackend }
func okOp() error      { return nil }

// ---------------------------------------------------------------------------
// TestBreaker_Execute - Open / Close Transitions
// ---------------------------------------------------------------------------

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := b.Execute(failingOp); !errors.Is(err, errBackend) {
			t.Fatalf("failure %d: error = %v, want %v", i+1, err, errBackend)
		}
	}

	invoked := false
	err := b.Execute(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error after threshold = %v, want %v", err, ErrCircuitOpen)
	}
	if invoked {
		t.Error("operation invoked while circuit open")
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(3, 100*time.Millisecond)

	_ = b.Execute(failingOp)
	_ = b.Execute(failingOp)

	if err := b.Execute(okOp); err != nil {
		t.Fatalf("error below threshold = %v, want nil", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(3, 100*time.Millisecond)

	_ = b.Execute(failingOp)
	_ = b.Execute(failingOp)
	_ = b.Execute(okOp)

	// The count restarted at zero, so two more failures stay below
	// the threshold.
	_ = b.Execute(failingOp)
	_ = b.Execute(failingOp)

	if err := b.Execute(okOp); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit open after interleaved success, want closed")
	}
}

func TestBreaker_AutoClosesAfterBreakDuration(t *testing.T) {
	t.Parallel()

	b := NewBreaker(2, 30*time.Millisecond)

	_ = b.Execute(failingOp)
	_ = b.Execute(failingOp)
	if err := b.Execute(okOp); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error right after opening = %v, want %v", err, ErrCircuitOpen)
	}

	time.Sleep(50 * time.Millisecond)

	if err := b.Execute(okOp); err != nil {
		t.Fatalf("error after break window = %v, want nil", err)
	}
}

func TestBreaker_ReopensImmediatelyWhenStillBroken(t *testing.T) {
	t.Parallel()

	b := NewBreaker(2, 30*time.Millisecond)

	_ = b.Execute(failingOp)
	_ = b.Execute(failingOp)

	time.Sleep(50 * time.Millisecond)

	// Auto-close keeps the accumulated count: a single further failure
	// re-opens the circuit without needing a fresh run of failures.
	if err := b.Execute(failingOp); !errors.Is(err, errBackend) {
		t.Fatalf("first failure after auto-close error = %v, want %v", err, errBackend)
	}
	if err := b.Execute(okOp); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error after the re-opening failure = %v, want %v", err, ErrCircuitOpen)
	}
}

func TestBreaker_ErrorAnnotatesRemainingTime(t *testing.T) {
	t.Parallel()

	b := NewBreaker(1, time.Minute)

	_ = b.Execute(failingOp)

	err := b.Execute(okOp)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want %v", err, ErrCircuitOpen)
	}
	if msg := err.Error(); msg == ErrCircuitOpen.Error() {
		t.Errorf("error %q carries no retry hint", msg)
	}
}

func TestBreaker_DefaultsOnInvalidSettings(t *testing.T) {
	t.Parallel()

	b := NewBreaker(0, 0)
	if b.threshold != DefaultBreakerThreshold {
		t.Errorf("threshold = %d, want %d", b.threshold, DefaultBreakerThreshold)
	}
	if b.breakDuration != DefaultBreakDuration {
		t.Errorf("breakDuration = %v, want %v", b.breakDuration, DefaultBreakDuration)
	}
}

// ---------------------------------------------------------------------------
// TestBreaker_Reset / Status
// ---------------------------------------------------------------------------

func TestBreaker_ResetClearsEverything(t *testing.T) {
	t.Parallel()

	b := NewBreaker(1, time.Minute)

	_ = b.Execute(failingOp)
	b.Reset()

	if err := b.Execute(okOp); err != nil {
		t.Fatalf("error after Reset = %v, want nil", err)
	}

	st := b.Status()
	if st.Open {
		t.Error("Status().Open = true after Reset")
	}
	if st.Failures != 0 {
		t.Errorf("Status().Failures = %d after Reset, want 0", st.Failures)
	}
}

func TestBreaker_Status(t *testing.T) {
	t.Parallel()

	b := NewBreaker(2, time.Minute)

	st := b.Status()
	if st.Open || st.Failures != 0 {
		t.Fatalf("fresh Status() = %+v, want closed with zero failures", st)
	}

	_ = b.Execute(failingOp)
	if got := b.Status().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}

	_ = b.Execute(failingOp)
	st = b.Status()
	if !st.Open {
		t.Error("Status().Open = false after reaching the threshold")
	}
	if st.RetryIn <= 0 {
		t.Errorf("Status().RetryIn = %v, want positive while open", st.RetryIn)
	}
}

func TestBreaker_StatusClearsElapsedWindow(t *testing.T) {
	t.Parallel()

	b := NewBreaker(1, 20*time.Millisecond)

	_ = b.Execute(failingOp)
	if !b.Status().Open {
		t.Fatal("Status().Open = false right after opening")
	}

	time.Sleep(40 * time.Millisecond)

	st := b.Status()
	if st.Open {
		t.Error("Status().Open = true after the break window elapsed")
	}
	if st.RetryIn != 0 {
		t.Errorf("Status().RetryIn = %v after auto-close, want 0", st.RetryIn)
	}
}
