package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	office2pdf "github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput         = errors.New("no input specified")
	ErrInputNotFound   = errors.New("input file not found")
	ErrOutputConflict  = errors.New("--output names a file but multiple inputs were given")
	ErrBatchFailed     = errors.New("some conversions failed")
	ErrInvalidTimeout  = errors.New("invalid timeout")
	ErrInvalidWorkers  = errors.New("invalid worker count")
	ErrOrphanedWorkers = errors.New("orphaned worker processes found")
)

// dirPermissions for created output directories.
const dirPermissions = 0o750

// fileConverter is the slice of the service the CLI drives.
type fileConverter interface {
	ConvertFile(ctx context.Context, inputPath, outputPath string, onProgress office2pdf.ProgressFunc) (*office2pdf.Result, error)
	Status() (office2pdf.PoolStats, office2pdf.BreakerStatus)
	FindPotentiallyOrphaned() []int
	Close()
}

// Compile-time interface implementation check.
var _ fileConverter = (*office2pdf.Service)(nil)

// fileToConvert pairs an input with its resolved output path.
type fileToConvert struct {
	inputPath  string
	outputPath string
}

// conversionResult holds the outcome of a single conversion.
type conversionResult struct {
	inputPath  string
	outputPath string
	cacheHit   bool
	err        error
	duration   time.Duration
}

// run orchestrates the CLI: load config, build the service, fan the
// inputs out over the pool, and report per-file outcomes.
func run(ctx context.Context, inputs []string, flags *cliFlags, log *zap.Logger, deps *Dependencies) error {
	cfg := &config.Config{}
	if flags.config != "" {
		var err error
		cfg, err = config.Load(flags.config)
		if err != nil {
			return err
		}
	}
	if err := mergeFlags(flags, cfg); err != nil {
		return err
	}

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	if flags.findOrphans {
		return reportOrphans(svc, deps)
	}

	files, err := resolveFiles(inputs, flags.output)
	if err != nil {
		return err
	}

	results := convertBatch(ctx, svc, files, log, deps.Now)
	return report(results, deps)
}

// mergeFlags folds CLI flags into the config; flags win.
func mergeFlags(flags *cliFlags, cfg *config.Config) error {
	if flags.workers != 0 {
		if flags.workers < 0 || flags.workers > config.MaxWorkers {
			return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidWorkers, flags.workers, config.MaxWorkers)
		}
		cfg.Pool.Workers = flags.workers
	}
	if flags.timeout != "" {
		if _, err := time.ParseDuration(flags.timeout); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimeout, flags.timeout)
		}
		cfg.Convert.Timeout = flags.timeout
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}
	if flags.sofficeBin != "" {
		cfg.Convert.SofficeBin = flags.sofficeBin
	}
	return nil
}

// newService builds the conversion service from a merged config.
func newService(cfg *config.Config, log *zap.Logger) (*office2pdf.Service, error) {
	opts := []office2pdf.Option{
		office2pdf.WithWorkers(cfg.Pool.Workers),
		office2pdf.WithLogger(log),
	}
	if cfg.Pool.MaxUses != 0 {
		opts = append(opts, office2pdf.WithHandleMaxUses(cfg.Pool.MaxUses))
	}
	if cfg.Breaker.Threshold != 0 {
		opts = append(opts, office2pdf.WithBreakerThreshold(cfg.Breaker.Threshold))
	}
	if d := cfg.BreakDuration(); d > 0 {
		opts = append(opts, office2pdf.WithBreakDuration(d))
	}
	if cfg.Cache.Dir != "" {
		opts = append(opts, office2pdf.WithCacheDir(cfg.Cache.Dir))
		if d := cfg.CacheTTL(); d > 0 {
			opts = append(opts, office2pdf.WithCacheTTL(d))
		}
		if d := cfg.SweepInterval(); d > 0 {
			opts = append(opts, office2pdf.WithSweepInterval(d))
		}
	}
	if cfg.Convert.SofficeBin != "" {
		opts = append(opts, office2pdf.WithSofficeBin(cfg.Convert.SofficeBin))
	}
	if d := cfg.ConvertTimeout(); d > 0 {
		opts = append(opts, office2pdf.WithTimeout(d))
	}

	return office2pdf.New(opts...)
}

// resolveFiles validates the inputs and pairs each with an output
// path. A single input may target an explicit output file; multiple
// inputs require the output to be a directory (created on demand).
func resolveFiles(inputs []string, output string) ([]fileToConvert, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	for _, in := range inputs {
		if !office2pdf.SupportedFormat(in) {
			return nil, fmt.Errorf("%w: %s", office2pdf.ErrUnsupportedFormat, in)
		}
		if _, err := os.Stat(in); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, in)
		}
	}

	// Explicit output file for a single input.
	if len(inputs) == 1 && output != "" && strings.EqualFold(filepath.Ext(output), ".pdf") {
		return []fileToConvert{{inputPath: inputs[0], outputPath: output}}, nil
	}
	if output != "" && strings.EqualFold(filepath.Ext(output), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrOutputConflict, output)
	}

	outDir := output
	if outDir != "" {
		if err := os.MkdirAll(outDir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	files := make([]fileToConvert, 0, len(inputs))
	for _, in := range inputs {
		dir := outDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".pdf"
		files = append(files, fileToConvert{inputPath: in, outputPath: filepath.Join(dir, base)})
	}
	return files, nil
}

// convertBatch processes files concurrently. The service's pool
// bounds real concurrency; the fan-out just keeps it saturated.
func convertBatch(ctx context.Context, svc fileConverter, files []fileToConvert, log *zap.Logger, now func() time.Time) []conversionResult {
	if len(files) == 0 {
		return nil
	}

	stats, _ := svc.Status()
	concurrency := stats.MaxSize
	if concurrency > len(files) {
		concurrency = len(files)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]conversionResult, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = conversionResult{inputPath: files[idx].inputPath, err: ctx.Err()}
					continue
				}
				results[idx] = convertOne(ctx, svc, files[idx], log, now)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertOne runs a single conversion with progress logging.
func convertOne(ctx context.Context, svc fileConverter, f fileToConvert, log *zap.Logger, now func() time.Time) conversionResult {
	start := now()

	res, err := svc.ConvertFile(ctx, f.inputPath, f.outputPath, func(p office2pdf.Progress) {
		log.Debug("conversion progress",
			zap.String("stage", p.Stage.String()),
			zap.String("input", p.InputPath),
			zap.Int64("handle_id", p.HandleID))
	})

	r := conversionResult{
		inputPath:  f.inputPath,
		outputPath: f.outputPath,
		err:        err,
		duration:   now().Sub(start),
	}
	if res != nil {
		r.cacheHit = res.CacheHit
	}
	return r
}

// report prints per-file outcomes and returns ErrBatchFailed when any
// conversion failed.
func report(results []conversionResult, deps *Dependencies) error {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(deps.Stderr, "FAIL %s: %v\n", r.inputPath, r.err)
			continue
		}
		note := ""
		if r.cacheHit {
			note = " (cached)"
		}
		fmt.Fprintf(deps.Stdout, "%s -> %s%s (%s)\n",
			r.inputPath, r.outputPath, note, r.duration.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBatchFailed, failed, len(results))
	}
	return nil
}

// reportOrphans prints likely leaked worker processes. Reporting only;
// killing a process the heuristic cannot prove ownership of is worse
// than leaving it.
func reportOrphans(svc fileConverter, deps *Dependencies) error {
	orphans := svc.FindPotentiallyOrphaned()
	if len(orphans) == 0 {
		fmt.Fprintln(deps.Stdout, "no orphaned worker processes found")
		return nil
	}
	for _, pid := range orphans {
		fmt.Fprintf(deps.Stdout, "possibly orphaned: pid %d\n", pid)
	}
	return fmt.Errorf("%w: %d", ErrOrphanedWorkers, len(orphans))
}
