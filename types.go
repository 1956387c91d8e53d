package office2pdf

import "time"

// Request describes a single document conversion.
type Request struct {
	InputPath  string // Source document (required)
	OutputPath string // Destination PDF path (required)
}

// Result carries the outcome of a conversion.
// A failed conversion produces Success=false and a Message; the same
// failure is also returned as an error so callers can feed it to the
// circuit breaker.
type Result struct {
	Success    bool
	OutputPath string
	Message    string // Error description when Success is false
	CacheHit   bool   // True when served from the artifact cache
}

// Stage identifies a point in a conversion's lifecycle.
type Stage int

// Progress stages reported around the blocking conversion call.
const (
	StageStarting Stage = iota
	StageFinished
)

// String returns the stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Progress is delivered to the optional progress callback before and
// after the underlying conversion call.
type Progress struct {
	Stage     Stage
	InputPath string
	HandleID  int64
}

// ProgressFunc receives progress notifications. May be nil.
type ProgressFunc func(Progress)

// Defaults for pool, breaker, cache and converter tuning.
const (
	// DefaultMaxUses bounds how many conversions a single handle runs
	// before it is retired. Long-lived native automation objects leak
	// slowly; recycling caps the exposure of any single instance.
	DefaultMaxUses = 20

	// DefaultBreakerThreshold is the consecutive-failure count that
	// opens the circuit.
	DefaultBreakerThreshold = 5

	// DefaultBreakDuration is how long the circuit stays open.
	DefaultBreakDuration = 2 * time.Minute

	// DefaultCacheTTL is how long an unused artifact stays cached.
	// The window slides on each cache hit.
	DefaultCacheTTL = 30 * time.Minute

	// DefaultSweepInterval is how often the cache evicts stale entries.
	DefaultSweepInterval = 5 * time.Minute

	// DefaultConvertTimeout bounds a single conversion call.
	DefaultConvertTimeout = 2 * time.Minute
)
