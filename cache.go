package office2pdf

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// cacheEntry indexes one stored artifact. An entry is valid only
// while its backing file exists; a missing file is treated as absent
// and purged on lookup.
type cacheEntry struct {
	sourcePath   string
	storedPath   string
	createdAt    time.Time
	lastAccessed time.Time
	sizeBytes    int64
}

// ArtifactCache maps content fingerprints to previously produced
// PDFs, stored as copies in its own directory. The cache is
// best-effort everywhere: add and sweep failures are logged and never
// abort a conversion.
type ArtifactCache struct {
	dir           string
	ttl           time.Duration
	sweepInterval time.Duration
	log           *zap.Logger
	metrics       *Metrics

	mu      sync.Mutex
	entries map[string]*cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// CacheOption configures an ArtifactCache.
type CacheOption func(*ArtifactCache)

// WithCacheLogger sets the cache's logger (default: no-op).
func WithCacheLogger(log *zap.Logger) CacheOption {
	return func(c *ArtifactCache) { c.log = log }
}

// WithCacheMetrics attaches metric collectors to the cache.
func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *ArtifactCache) { c.metrics = m }
}

// NewArtifactCache creates the storage directory and starts the
// background sweep. Non-positive ttl or sweepInterval fall back to
// the defaults (30 minutes, 5 minutes).
func NewArtifactCache(dir string, ttl, sweepInterval time.Duration, opts ...CacheOption) (*ArtifactCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	c := &ArtifactCache{
		dir:           dir,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		log:           zap.NewNop(),
		entries:       make(map[string]*cacheEntry),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.sweepLoop()
	return c, nil
}

// Fingerprint derives a cache key from the file's content and base
// name. BLAKE3 over the bytes plus the name keeps two same-content
// files with different names distinct, since the name influences the
// produced PDF's metadata.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(filepath.Base(path)))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetCached returns the stored path for a fingerprint. A hit requires
// the backing file to still exist; a stale index entry is purged and
// reported as a miss. A miss is not an error, the caller simply
// (re)produces the artifact.
func (c *ArtifactCache) GetCached(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.cacheMiss()
		return "", false
	}

	if !fileutil.FileExists(e.storedPath) {
		delete(c.entries, key)
		c.log.Debug("purged stale cache entry",
			zap.String("key", key),
			zap.String("stored_path", e.storedPath))
		c.metrics.cacheMiss()
		return "", false
	}

	e.lastAccessed = time.Now()
	c.metrics.cacheHit()
	return e.storedPath, true
}

// AddToCache copies the produced artifact into cache storage and
// indexes it, returning the stored path. On copy failure the original
// path is returned unchanged; caching is best-effort and must never
// fail a conversion that already succeeded.
func (c *ArtifactCache) AddToCache(key, producedPath string) string {
	storedPath := filepath.Join(c.dir, key+".pdf")

	if err := fileutil.CopyFile(producedPath, storedPath); err != nil {
		c.log.Warn("cache store failed",
			zap.String("key", key),
			zap.String("produced_path", producedPath),
			zap.Error(err))
		return producedPath
	}

	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &cacheEntry{
		sourcePath:   producedPath,
		storedPath:   storedPath,
		createdAt:    now,
		lastAccessed: now,
		sizeBytes:    fileutil.FileSize(storedPath),
	}
	c.mu.Unlock()

	return storedPath
}

// Len returns the number of indexed entries.
func (c *ArtifactCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear deletes all backing files and empties the index.
func (c *ArtifactCache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()

	for key, e := range entries {
		if err := os.Remove(e.storedPath); err != nil && !os.IsNotExist(err) {
			c.log.Warn("cache clear: removing artifact failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// Close stops the sweep loop and clears the cache. Safe to call more
// than once.
func (c *ArtifactCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.Clear()
}

// sweepLoop evicts entries idle past the TTL on a fixed interval.
// Sweep failures are logged and never stop the timer.
func (c *ArtifactCache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

// sweep removes entries whose lastAccessed is older than the TTL
// cutoff, deleting backing files along with their index entries.
func (c *ArtifactCache) sweep(now time.Time) {
	cutoff := now.Add(-c.ttl)

	c.mu.Lock()
	var stale []*cacheEntry
	for key, e := range c.entries {
		if e.lastAccessed.Before(cutoff) {
			delete(c.entries, key)
			stale = append(stale, e)
		}
	}
	c.mu.Unlock()

	for _, e := range stale {
		if err := os.Remove(e.storedPath); err != nil && !os.IsNotExist(err) {
			c.log.Warn("cache sweep: removing artifact failed",
				zap.String("stored_path", e.storedPath),
				zap.Error(err))
		}
	}

	if len(stale) > 0 {
		c.log.Debug("cache sweep evicted entries", zap.Int("count", len(stale)))
	}
}
