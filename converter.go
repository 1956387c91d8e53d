package office2pdf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// converter is the blocking conversion primitive. Implementations own
// native resources (an office process profile, a browser) and are
// only ever invoked on the affinity worker thread that created them.
type converter interface {
	// Convert renders the input document to PDF at outputPath. It
	// blocks for the duration of the native call.
	Convert(ctx context.Context, inputPath, outputPath string) error

	// Close releases the native resources. Must run on the owning
	// worker thread.
	Close() error
}

// converterFactory builds a converter. The resource pool invokes it
// on the affinity worker thread the new handle is bound to.
type converterFactory func() (converter, error)

// converterConfig carries backend tuning shared by all handles.
type converterConfig struct {
	sofficeBin string
	timeout    time.Duration
	guard      *ProcessGuard
	log        *zap.Logger
}

// officeExtensions lists the formats routed to the LibreOffice
// backend. Everything browser-renderable goes through Chrome instead.
var officeExtensions = map[string]bool{
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".odt":  true,
	".ods":  true,
	".odp":  true,
	".rtf":  true,
	".txt":  true,
}

// webExtensions lists the formats rendered directly by headless Chrome.
var webExtensions = map[string]bool{
	".html": true,
	".htm":  true,
}

// markdownExtensions lists the formats converted to HTML first.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// SupportedFormat reports whether the input extension is convertible.
func SupportedFormat(inputPath string) bool {
	ext := strings.ToLower(filepath.Ext(inputPath))
	return officeExtensions[ext] || webExtensions[ext] || markdownExtensions[ext]
}

// formatConverter dispatches by input extension to a format-specific
// backend. All backends live and die with the handle that owns this
// converter, on that handle's worker thread.
type formatConverter struct {
	office   *sofficeConverter
	renderer *rodRenderer
	markdown *markdownConverter
}

// newFormatConverter builds the dispatching converter. The office
// profile directory is created eagerly (it is cheap and its failure
// should surface at rent time); the browser connects lazily on the
// first web or markdown conversion.
func newFormatConverter(cfg converterConfig) (converter, error) {
	office, err := newSofficeConverter(cfg)
	if err != nil {
		return nil, err
	}

	renderer := newRodRenderer(cfg)

	return &formatConverter{
		office:   office,
		renderer: renderer,
		markdown: newMarkdownConverter(renderer),
	}, nil
}

// Convert routes the document to the backend for its extension.
func (c *formatConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	ext := strings.ToLower(filepath.Ext(inputPath))

	switch {
	case officeExtensions[ext]:
		return c.office.Convert(ctx, inputPath, outputPath)
	case webExtensions[ext]:
		return c.renderer.Convert(ctx, inputPath, outputPath)
	case markdownExtensions[ext]:
		return c.markdown.Convert(ctx, inputPath, outputPath)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Close tears down every backend. Errors are joined so one failing
// backend does not mask another's cleanup.
func (c *formatConverter) Close() error {
	return errors.Join(c.office.Close(), c.renderer.Close())
}
