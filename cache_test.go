package office2pdf

// Notes:
// - Sweep tests call the unexported sweep(now) directly with a crafted
//   clock instead of waiting out the ticker.

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func newTestCache(t *testing.T) *ArtifactCache {
	t.Helper()
	c, err := NewArtifactCache(t.TempDir(), 30*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewArtifactCache() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// ---------------------------------------------------------------------------
// TestFingerprint - Content Keys
// ---------------------------------------------------------------------------

func TestFingerprint(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	a := writeFile(t, dir, "report.docx", "same bytes")
	b := writeFile(t, dir, "copy.docx", "same bytes")
	c := writeFile(t, dir, "other.docx", "different bytes")

	keyA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	keyA2, _ := Fingerprint(a)
	keyB, _ := Fingerprint(b)
	keyC, _ := Fingerprint(c)

	if keyA != keyA2 {
		t.Error("same file fingerprinted differently across calls")
	}
	if keyA == keyB {
		t.Error("same content under different names must not collide")
	}
	if keyA == keyC {
		t.Error("different content collided")
	}
}

func TestFingerprint_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Fingerprint(filepath.Join(t.TempDir(), "nope.docx")); err == nil {
		t.Error("Fingerprint() on missing file: want error, got nil")
	}
}

// ---------------------------------------------------------------------------
// TestCache_AddAndGet
// ---------------------------------------------------------------------------

func TestCache_AddThenGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	produced := writeFile(t, t.TempDir(), "out.pdf", "%PDF-artifact")

	stored := c.AddToCache("key1", produced)
	if stored == produced {
		t.Fatal("AddToCache() returned the produced path; expected a cache copy")
	}

	got, ok := c.GetCached("key1")
	if !ok {
		t.Fatal("GetCached() miss after AddToCache()")
	}
	if got != stored {
		t.Errorf("GetCached() = %q, want %q", got, stored)
	}

	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("reading stored artifact: %v", err)
	}
	if string(data) != "%PDF-artifact" {
		t.Errorf("stored artifact = %q, want original content", data)
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	if _, ok := c.GetCached("never-added"); ok {
		t.Error("GetCached() hit on a key that was never added")
	}
}

func TestCache_DeletedFileIsAMiss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	produced := writeFile(t, t.TempDir(), "out.pdf", "%PDF-artifact")

	stored := c.AddToCache("key1", produced)
	if err := os.Remove(stored); err != nil {
		t.Fatalf("removing stored artifact: %v", err)
	}

	if _, ok := c.GetCached("key1"); ok {
		t.Error("GetCached() hit although the backing file is gone")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d after stale purge, want 0", got)
	}
}

func TestCache_AddFailureFallsBackToProducedPath(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	missing := filepath.Join(t.TempDir(), "never-written.pdf")

	if got := c.AddToCache("key1", missing); got != missing {
		t.Errorf("AddToCache() with unreadable source = %q, want the produced path back", got)
	}
	if _, ok := c.GetCached("key1"); ok {
		t.Error("GetCached() hit after a failed store")
	}
}

// ---------------------------------------------------------------------------
// TestCache_Sweep - Sliding TTL Eviction
// ---------------------------------------------------------------------------

func TestCache_SweepEvictsIdleEntries(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	dir := t.TempDir()

	oldPDF := writeFile(t, dir, "old.pdf", "%PDF-old")
	freshPDF := writeFile(t, dir, "fresh.pdf", "%PDF-fresh")

	oldStored := c.AddToCache("old", oldPDF)
	c.AddToCache("fresh", freshPDF)

	// Age only the first entry past the TTL.
	c.mu.Lock()
	c.entries["old"].lastAccessed = time.Now().Add(-time.Hour)
	c.mu.Unlock()

	c.sweep(time.Now())

	if _, ok := c.GetCached("old"); ok {
		t.Error("idle entry survived the sweep")
	}
	if _, ok := c.GetCached("fresh"); !ok {
		t.Error("fresh entry evicted by the sweep")
	}
	if _, err := os.Stat(oldStored); !os.IsNotExist(err) {
		t.Errorf("swept artifact still on disk: %v", err)
	}
}

func TestCache_AccessSlidesTheTTL(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	produced := writeFile(t, t.TempDir(), "out.pdf", "%PDF-artifact")
	c.AddToCache("key1", produced)

	c.mu.Lock()
	c.entries["key1"].lastAccessed = time.Now().Add(-29 * time.Minute)
	c.mu.Unlock()

	// The hit refreshes lastAccessed, so a sweep two minutes later
	// (31 minutes after the original access) keeps the entry.
	if _, ok := c.GetCached("key1"); !ok {
		t.Fatal("GetCached() miss on a live entry")
	}
	c.sweep(time.Now().Add(2 * time.Minute))

	if _, ok := c.GetCached("key1"); !ok {
		t.Error("recently accessed entry evicted; TTL did not slide")
	}
}

// ---------------------------------------------------------------------------
// TestCache_ClearAndClose
// ---------------------------------------------------------------------------

func TestCache_ClearRemovesEverything(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	dir := t.TempDir()

	s1 := c.AddToCache("a", writeFile(t, dir, "a.pdf", "%PDF-a"))
	s2 := c.AddToCache("b", writeFile(t, dir, "b.pdf", "%PDF-b"))

	c.Clear()

	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d after Clear, want 0", got)
	}
	for _, stored := range []string{s1, s2} {
		if _, err := os.Stat(stored); !os.IsNotExist(err) {
			t.Errorf("artifact %s still on disk after Clear", stored)
		}
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c, err := NewArtifactCache(t.TempDir(), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewArtifactCache() error = %v", err)
	}
	c.Close()
	c.Close()
}
