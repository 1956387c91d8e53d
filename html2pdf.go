package office2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-office2pdf/internal/process"
)

// PDF page dimensions in inches (US Letter format).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
	marginInches      = 0.5
)

// rodRenderer prints HTML files to PDF with headless Chrome via
// go-rod. Rod downloads Chromium on first run if none is found. The
// browser connection is established lazily and is bound to the worker
// thread of the handle that owns this renderer.
type rodRenderer struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
	guard    *ProcessGuard
	log      *zap.Logger
}

// newRodRenderer creates a renderer; the browser starts on first use.
func newRodRenderer(cfg converterConfig) *rodRenderer {
	log := cfg.log
	if log == nil {
		log = zap.NewNop()
	}
	return &rodRenderer{
		timeout: cfg.timeout,
		guard:   cfg.guard,
		log:     log,
	}
}

// ensureBrowser lazily launches and connects to the browser, and
// registers the browser process with the guard.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	if r.guard != nil {
		if pid := l.PID(); pid != 0 {
			r.guard.RegisterProcess(pid)
		}
	}
	return nil
}

// Convert renders a local HTML file to a PDF at outputPath.
func (r *rodRenderer) Convert(ctx context.Context, inputPath, outputPath string) error {
	pdf, err := r.render(ctx, inputPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, pdf, 0o600); err != nil {
		return fmt.Errorf("%w: writing output: %v", ErrConversion, err)
	}
	return nil
}

// render opens the file in headless Chrome and prints it to PDF
// bytes. Returns explicit errors instead of panicking when browser
// operations fail.
func (r *rodRenderer) render(ctx context.Context, filePath string) ([]byte, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Wait for page load with the shorter of renderer timeout and
	// context deadline.
	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultConvertTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrConversion, err)
	}

	return pdfBuf, nil
}

// Close shuts the browser down and reaps its process tree.
func (r *rodRenderer) Close() error {
	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.browser = nil

	if r.launcher != nil {
		pid := r.launcher.PID()
		// Kill the whole group: Chrome forks renderer and GPU child
		// processes that browser.Close does not always collect.
		if pid != 0 {
			process.KillProcessGroup(pid)
		}
		r.launcher.Kill()
		if r.guard != nil && pid != 0 {
			r.guard.UnregisterProcess(pid)
		}
		r.launcher = nil
	}

	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
