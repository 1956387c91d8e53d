package office2pdf

// Shared test doubles. The fake converter replaces the LibreOffice and
// Chrome backends so pool, breaker, and service semantics can be tested
// without native processes.

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
)

// fakeConverter is a converter whose behavior is scripted per test.
type fakeConverter struct {
	convertFn func(ctx context.Context, inputPath, outputPath string) error
	converts  atomic.Int64
	closed    atomic.Bool
}

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	f.converts.Add(1)
	if f.convertFn != nil {
		return f.convertFn(ctx, inputPath, outputPath)
	}
	// Default: produce a tiny placeholder artifact.
	return os.WriteFile(outputPath, []byte("%PDF-fake"), 0o600)
}

func (f *fakeConverter) Close() error {
	f.closed.Store(true)
	return nil
}

// converterRecorder collects the fake converters a factory creates.
// Factories run on affinity worker threads, so access is locked.
type converterRecorder struct {
	mu      sync.Mutex
	created []*fakeConverter
}

func (r *converterRecorder) add(fc *fakeConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, fc)
}

func (r *converterRecorder) all() []*fakeConverter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeConverter(nil), r.created...)
}

// fakeFactory returns a converterFactory producing fakes, recording
// them when rec is non-nil.
func fakeFactory(rec *converterRecorder) converterFactory {
	return func() (converter, error) {
		fc := &fakeConverter{}
		if rec != nil {
			rec.add(fc)
		}
		return fc, nil
	}
}
