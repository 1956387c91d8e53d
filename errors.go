package office2pdf

import "errors"

// Sentinel errors for library operations.
var (
	// Pool lifecycle errors.
	ErrPoolClosed       = errors.New("pool is closed")
	ErrWorkerPoolClosed = errors.New("worker pool is shut down")

	// Handle errors.
	ErrHandleDisposed  = errors.New("handle is disposed")
	ErrHandleNotRented = errors.New("handle is not rented")

	// Conversion errors. ErrConversion failures count toward the
	// circuit breaker threshold; ErrCircuitOpen means the caller must
	// back off until the break window has elapsed.
	ErrConversion        = errors.New("conversion failed")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// Converter backend errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrHTMLConversion = errors.New("HTML conversion failed")
)
