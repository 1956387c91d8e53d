package office2pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// defaultSofficeBin is the LibreOffice binary resolved from PATH when
// no explicit path is configured.
const defaultSofficeBin = "soffice"

// sofficeConverter converts office documents to PDF by driving the
// LibreOffice CLI in headless mode. Each converter owns a private
// UserInstallation profile directory: LibreOffice refuses to run two
// instances against one profile, so the profile is what makes this a
// stateful per-handle resource rather than a plain subprocess call.
type sofficeConverter struct {
	bin        string
	profileDir string
	timeout    time.Duration
	guard      *ProcessGuard
	log        *zap.Logger
}

// newSofficeConverter creates the converter and its profile directory.
func newSofficeConverter(cfg converterConfig) (*sofficeConverter, error) {
	bin := cfg.sofficeBin
	if bin == "" {
		bin = defaultSofficeBin
	}

	profileDir, err := os.MkdirTemp("", "office2pdf-profile-*")
	if err != nil {
		return nil, fmt.Errorf("creating soffice profile dir: %w", err)
	}

	log := cfg.log
	if log == nil {
		log = zap.NewNop()
	}

	return &sofficeConverter{
		bin:        bin,
		profileDir: profileDir,
		timeout:    cfg.timeout,
		guard:      cfg.guard,
		log:        log,
	}, nil
}

// Convert runs one headless LibreOffice invocation. The spawned
// process is registered with the process guard for the duration of
// the call so an abnormal teardown can still reap it.
func (c *sofficeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("%w: creating output dir: %v", ErrConversion, err)
	}

	// A dedicated UserInstallation lets this instance run alongside
	// the instances owned by other handles.
	cmd := exec.CommandContext(ctx, c.bin,
		"--headless",
		"--norestore",
		"--nolockcheck",
		"-env:UserInstallation=file://"+c.profileDir,
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: starting %s: %v", ErrConversion, c.bin, err)
	}

	pid := cmd.Process.Pid
	if c.guard != nil {
		c.guard.RegisterProcess(pid)
		defer c.guard.UnregisterProcess(pid)
	}

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %v", ErrConversion, msg, err)
		}
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	// LibreOffice names the output after the input basename; move it
	// to the requested path when they differ.
	produced := filepath.Join(outDir, pdfName(inputPath))
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("%w: placing output: %v", ErrConversion, err)
		}
	}

	if !fileutil.FileExists(outputPath) {
		return fmt.Errorf("%w: %s produced no output for %s", ErrConversion, c.bin, inputPath)
	}

	return nil
}

// Close removes the profile directory. The LibreOffice processes
// themselves exit with each Convert call; stragglers are the process
// guard's problem.
func (c *sofficeConverter) Close() error {
	if c.profileDir == "" {
		return nil
	}
	err := os.RemoveAll(c.profileDir)
	c.profileDir = ""
	if err != nil {
		return fmt.Errorf("removing soffice profile dir: %w", err)
	}
	return nil
}

// pdfName returns the file name LibreOffice emits for the input.
func pdfName(inputPath string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".pdf"
}
