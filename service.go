package office2pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// watchedProcessNames are the worker process kinds the guard observes.
var watchedProcessNames = []string{"soffice", "soffice.bin", "chrome", "chromium"}

// Service composes the conversion core: the handle pool, the circuit
// breaker, the artifact cache, and the process guard. Each Service is
// an explicitly constructed, explicitly owned instance; there is no
// package-level singleton.
type Service struct {
	pool    *Pool
	breaker *Breaker
	cache   *ArtifactCache
	guard   *ProcessGuard
	log     *zap.Logger
	metrics *Metrics
}

// serviceConfig holds construction-time settings gathered by Options.
type serviceConfig struct {
	workers          int
	maxUses          int
	breakerThreshold int
	breakDuration    time.Duration
	cacheDir         string
	cacheTTL         time.Duration
	sweepInterval    time.Duration
	sofficeBin       string
	timeout          time.Duration
	log              *zap.Logger
	registerer       prometheus.Registerer
	factory          converterFactory // test seam
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithWorkers overrides the derived pool capacity.
func WithWorkers(n int) Option {
	return func(c *serviceConfig) { c.workers = n }
}

// WithHandleMaxUses overrides handle retirement (default 20 uses).
func WithHandleMaxUses(n int) Option {
	return func(c *serviceConfig) { c.maxUses = n }
}

// WithBreakerThreshold overrides the consecutive-failure threshold.
func WithBreakerThreshold(n int) Option {
	return func(c *serviceConfig) { c.breakerThreshold = n }
}

// WithBreakDuration overrides how long the circuit stays open.
func WithBreakDuration(d time.Duration) Option {
	return func(c *serviceConfig) { c.breakDuration = d }
}

// WithCacheDir enables the artifact cache in the given directory.
// Without it the service converts every request.
func WithCacheDir(dir string) Option {
	return func(c *serviceConfig) { c.cacheDir = dir }
}

// WithCacheTTL overrides the artifact TTL (default 30 minutes).
func WithCacheTTL(d time.Duration) Option {
	return func(c *serviceConfig) { c.cacheTTL = d }
}

// WithSweepInterval overrides the cache sweep cadence (default 5 minutes).
func WithSweepInterval(d time.Duration) Option {
	return func(c *serviceConfig) { c.sweepInterval = d }
}

// WithSofficeBin points at a specific LibreOffice binary.
func WithSofficeBin(path string) Option {
	return func(c *serviceConfig) { c.sofficeBin = path }
}

// WithTimeout sets the per-conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("office2pdf: WithTimeout duration must be positive")
	}
	return func(c *serviceConfig) { c.timeout = d }
}

// WithLogger sets the service logger, threaded through every
// component (default: no-op).
func WithLogger(log *zap.Logger) Option {
	return func(c *serviceConfig) { c.log = log }
}

// WithMetrics registers Prometheus collectors with reg and records
// pool, cache, breaker and conversion metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *serviceConfig) { c.registerer = reg }
}

// withConverterFactory replaces the real backends; tests use this to
// avoid spawning LibreOffice and Chrome.
func withConverterFactory(f converterFactory) Option {
	return func(c *serviceConfig) { c.factory = f }
}

// New builds a Service. The pool is sized from available parallelism
// unless WithWorkers overrides it; the cache is disabled unless
// WithCacheDir names a directory.
func New(opts ...Option) (*Service, error) {
	cfg := serviceConfig{
		timeout: DefaultConvertTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var metrics *Metrics
	if cfg.registerer != nil {
		metrics = NewMetrics(cfg.registerer)
	}

	guard := NewProcessGuard(watchedProcessNames, WithGuardLogger(cfg.log))

	factory := cfg.factory
	if factory == nil {
		convCfg := converterConfig{
			sofficeBin: cfg.sofficeBin,
			timeout:    cfg.timeout,
			guard:      guard,
			log:        cfg.log,
		}
		factory = func() (converter, error) { return newFormatConverter(convCfg) }
	}

	poolOpts := []PoolOption{WithPoolLogger(cfg.log), WithPoolMetrics(metrics)}
	if cfg.maxUses != 0 {
		poolOpts = append(poolOpts, WithMaxUses(cfg.maxUses))
	}
	pool := NewPool(resolveMaxPoolSize(cfg.workers), factory, poolOpts...)

	breaker := NewBreaker(cfg.breakerThreshold, cfg.breakDuration,
		WithBreakerLogger(cfg.log), WithBreakerMetrics(metrics))

	var cache *ArtifactCache
	if cfg.cacheDir != "" {
		var err error
		cache, err = NewArtifactCache(cfg.cacheDir, cfg.cacheTTL, cfg.sweepInterval,
			WithCacheLogger(cfg.log), WithCacheMetrics(metrics))
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Service{
		pool:    pool,
		breaker: breaker,
		cache:   cache,
		guard:   guard,
		log:     cfg.log,
		metrics: metrics,
	}, nil
}

// ConvertFile converts one document to PDF. The artifact cache is
// consulted first; on a hit the stored copy is placed at the output path
// without renting a handle. Otherwise a handle is rented, the
// conversion runs through the circuit breaker on the handle's bound
// worker thread, and the produced artifact is cached best-effort.
func (s *Service) ConvertFile(ctx context.Context, inputPath, outputPath string, onProgress ProgressFunc) (*Result, error) {
	if !SupportedFormat(inputPath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, inputPath)
	}

	var key string
	if s.cache != nil {
		var err error
		key, err = Fingerprint(inputPath)
		if err != nil {
			return nil, err
		}

		if storedPath, ok := s.cache.GetCached(key); ok {
			if err := fileutil.CopyFile(storedPath, outputPath); err == nil {
				s.log.Debug("served from cache",
					zap.String("input", inputPath),
					zap.String("key", key))
				return &Result{Success: true, OutputPath: outputPath, CacheHit: true}, nil
			}
			// Fall through to a real conversion if the copy failed.
		}
	}

	h, err := s.pool.Rent(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Return()

	var res *Result
	execErr := s.breaker.Execute(func() error {
		var convErr error
		res, convErr = h.Convert(ctx, Request{InputPath: inputPath, OutputPath: outputPath}, onProgress)
		return convErr
	})

	s.metrics.conversion(execErr != nil)

	if execErr != nil {
		if res != nil {
			return res, execErr
		}
		return nil, execErr
	}

	if s.cache != nil {
		s.cache.AddToCache(key, outputPath)
	}

	return res, nil
}

// Resize changes the pool's target size, clamped to its capacity.
func (s *Service) Resize(n int) {
	s.pool.AdjustSize(n)
}

// ResetBreaker is the manual override back to a closed circuit.
func (s *Service) ResetBreaker() {
	s.breaker.Reset()
}

// Status reports pool occupancy and breaker state.
func (s *Service) Status() (PoolStats, BreakerStatus) {
	return s.pool.Stats(), s.breaker.Status()
}

// FindPotentiallyOrphaned reports worker processes that look leaked
// by an earlier abnormal session. See ProcessGuard.
func (s *Service) FindPotentiallyOrphaned() []int {
	return s.guard.FindPotentiallyOrphaned()
}

// Close tears the service down: pool first (disposing handles closes
// their native workers cleanly), then the cache, then the guard kills
// whatever worker processes are still tracked. Nothing the service
// spawned survives a completed Close.
func (s *Service) Close() {
	s.pool.Close()
	if s.cache != nil {
		s.cache.Close()
	}
	if killed := s.guard.KillAllOurProcesses(); len(killed) > 0 {
		s.log.Warn("killed leftover worker processes", zap.Ints("pids", killed))
	}
}
