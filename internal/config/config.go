// Package config loads conversion-core settings from a YAML file.
// Every field is optional; zero values fall back to library defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alnah/go-office2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrConfigParse      = errors.New("failed to parse config")
	ErrInvalidWorkers   = errors.New("invalid workers value")
	ErrInvalidMaxUses   = errors.New("invalid maxUses value")
	ErrInvalidThreshold = errors.New("invalid threshold value")
	ErrInvalidDuration  = errors.New("invalid duration value")
)

// Bounds for sanity checks. Values outside these windows are far more
// likely typos than intent.
const (
	MaxWorkers        = 64
	MaxUsesLimit      = 10000
	MaxThresholdLimit = 1000
)

// Config holds all tunables for the conversion core.
type Config struct {
	Pool    PoolConfig    `yaml:"pool"`
	Breaker BreakerConfig `yaml:"breaker"`
	Cache   CacheConfig   `yaml:"cache"`
	Convert ConvertConfig `yaml:"convert"`
}

// PoolConfig tunes the resource pool.
type PoolConfig struct {
	Workers int `yaml:"workers"` // 0 = derive from available parallelism
	MaxUses int `yaml:"maxUses"` // 0 = default (20)
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	Threshold     int    `yaml:"threshold"`     // 0 = default (5)
	BreakDuration string `yaml:"breakDuration"` // e.g. "2m", "" = default
}

// CacheConfig tunes the artifact cache.
type CacheConfig struct {
	Dir           string `yaml:"dir"`           // "" = disabled
	TTL           string `yaml:"ttl"`           // e.g. "30m", "" = default
	SweepInterval string `yaml:"sweepInterval"` // e.g. "5m", "" = default
}

// ConvertConfig tunes the conversion backends.
type ConvertConfig struct {
	SofficeBin string `yaml:"sofficeBin"` // "" = resolve "soffice" from PATH
	Timeout    string `yaml:"timeout"`    // e.g. "2m", "" = default
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks bounds and duration syntax.
func (c *Config) Validate() error {
	if c.Pool.Workers < 0 || c.Pool.Workers > MaxWorkers {
		return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidWorkers, c.Pool.Workers, MaxWorkers)
	}
	if c.Pool.MaxUses < 0 || c.Pool.MaxUses > MaxUsesLimit {
		return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidMaxUses, c.Pool.MaxUses, MaxUsesLimit)
	}
	if c.Breaker.Threshold < 0 || c.Breaker.Threshold > MaxThresholdLimit {
		return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidThreshold, c.Breaker.Threshold, MaxThresholdLimit)
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"breaker.breakDuration", c.Breaker.BreakDuration},
		{"cache.ttl", c.Cache.TTL},
		{"cache.sweepInterval", c.Cache.SweepInterval},
		{"convert.timeout", c.Convert.Timeout},
	} {
		if _, err := parseDuration(d.value); err != nil {
			return fmt.Errorf("%w: %s: %q", ErrInvalidDuration, d.field, d.value)
		}
	}
	return nil
}

// BreakDuration returns the parsed break duration, or 0 when unset.
func (c *Config) BreakDuration() time.Duration { return mustDuration(c.Breaker.BreakDuration) }

// CacheTTL returns the parsed cache TTL, or 0 when unset.
func (c *Config) CacheTTL() time.Duration { return mustDuration(c.Cache.TTL) }

// SweepInterval returns the parsed sweep interval, or 0 when unset.
func (c *Config) SweepInterval() time.Duration { return mustDuration(c.Cache.SweepInterval) }

// ConvertTimeout returns the parsed conversion timeout, or 0 when unset.
func (c *Config) ConvertTimeout() time.Duration { return mustDuration(c.Convert.Timeout) }

// parseDuration treats the empty string as "unset" (zero duration).
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// mustDuration is parseDuration for already-validated configs.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}
