package main

import (
	"context"
	"errors"
	"os"

	office2pdf "github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
)

// Exit codes for the office2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0   // Successful conversion
	ExitGeneral     = 1   // General/unexpected error
	ExitUsage       = 2   // Invalid flags, config, or validation
	ExitIO          = 3   // File not found, permission denied
	ExitConversion  = 4   // Backend conversion failures
	ExitCircuitOpen = 5   // Fail-fast rejection, backend presumed down
	ExitInterrupted = 130 // Canceled by signal
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	if errors.Is(err, office2pdf.ErrCircuitOpen) {
		return ExitCircuitOpen
	}

	// Conversion and browser errors (exit 4)
	if errors.Is(err, office2pdf.ErrConversion) ||
		errors.Is(err, office2pdf.ErrBrowserConnect) ||
		errors.Is(err, office2pdf.ErrPageCreate) ||
		errors.Is(err, office2pdf.ErrPageLoad) ||
		errors.Is(err, office2pdf.ErrHTMLConversion) ||
		errors.Is(err, ErrBatchFailed) {
		return ExitConversion
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrInputNotFound) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidWorkers) ||
		errors.Is(err, config.ErrInvalidMaxUses) ||
		errors.Is(err, config.ErrInvalidThreshold) ||
		errors.Is(err, config.ErrInvalidDuration) ||
		errors.Is(err, office2pdf.ErrUnsupportedFormat) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrOutputConflict) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrInvalidWorkers) {
		return ExitUsage
	}

	return ExitGeneral
}
