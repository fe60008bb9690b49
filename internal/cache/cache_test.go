package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c := newTestCache(t)
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")
	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)

	if err := c.Set("k", []byte(`{"patterns":["flex"]}`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Get() should hit after Set()")
	}
	if string(got) != `{"patterns":["flex"]}` {
		t.Errorf("Get() = %q", got)
	}
}

func TestGetFromDiskAfterRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	first, err := New(dir, 24, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set("k", []byte("data")); err != nil {
		t.Fatal(err)
	}

	second, err := New(dir, 24, true)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := second.Get("k")
	if !ok || string(got) != "data" {
		t.Errorf("Get() = %q, %v; want data from disk", got, ok)
	}
}

func TestGetNonExistent(t *testing.T) {
	c := newTestCache(t)
	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should miss for unknown key")
	}
}

func TestTTLExpiration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	writer, err := New(dir, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	writer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	if err := writer.Set("old", []byte("stale")); err != nil {
		t.Fatal(err)
	}

	reader, err := New(dir, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reader.Get("old"); ok {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(reader.keyPath("old")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestDisabledCache(t *testing.T) {
	c, _ := New("", 0, false)
	if err := c.Set("k", []byte("v")); err != nil {
		t.Errorf("Set() on disabled cache error: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache should never hit")
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache error: %v", err)
	}

	var nilCache *Cache
	if nilCache.Enabled() {
		t.Error("nil cache should report disabled")
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	_ = c.Set("k", []byte("v"))
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Get() should miss after Clear()")
	}
}

func TestKey(t *testing.T) {
	a := Key([]byte(`<div class="flex">`), 1)
	b := Key([]byte(`<div class="flex">`), 1)
	if a != b {
		t.Error("same content and fingerprint should share a key")
	}
	if a == Key([]byte(`<div class="grid">`), 1) {
		t.Error("different content should change the key")
	}
	if a == Key([]byte(`<div class="flex">`), 2) {
		t.Error("different fingerprint should change the key")
	}
}

func TestHashBytes(t *testing.T) {
	h := HashBytes([]byte("hello"))
	if len(h) != 64 {
		t.Errorf("HashBytes() length = %d, want 64", len(h))
	}
	if h != HashBytes([]byte("hello")) {
		t.Error("HashBytes() should be deterministic")
	}
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)
	_ = c.Set("a", []byte("1"))
	_ = c.Set("b", []byte("2"))

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.InMemory != 2 {
		t.Errorf("InMemory = %d, want 2", stats.InMemory)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}
