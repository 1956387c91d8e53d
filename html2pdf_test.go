package office2pdf

// Notes:
// - Launching a real browser belongs to integration runs; these tests
//   cover the renderer's lifecycle around the launch.

import (
	"context"
	"testing"
	"time"
)

func TestRodRenderer_CloseWithoutLaunch(t *testing.T) {
	t.Parallel()

	r := newRodRenderer(converterConfig{timeout: time.Second})
	if err := r.Close(); err != nil {
		t.Errorf("Close() before any launch error = %v, want nil", err)
	}
	// A second close must also be a no-op.
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestRodRenderer_RenderHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	r := newRodRenderer(converterConfig{timeout: time.Second})
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The context check precedes the browser launch, so no browser is
	// ever started for a dead context.
	if _, err := r.render(ctx, "ignored.html"); err != context.Canceled {
		t.Errorf("render(cancelled) error = %v, want %v", err, context.Canceled)
	}
	if r.browser != nil {
		t.Error("browser launched despite cancelled context")
	}
}
