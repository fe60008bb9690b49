package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/clasp/internal/testutil"
	"github.com/panbanda/clasp/internal/vcs"
	"github.com/panbanda/clasp/pkg/config"
)

func relAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil || s.config == nil {
		t.Fatal("NewScanner(nil) should fall back to the default config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"index.html":                  `<div class="flex"></div>`,
		"src/App.vue":                 `<template></template>`,
		"src/components/Card.tsx":     `export {}`,
		"src/util.go":                 `package src`,
		"README.md":                   `# readme`,
		"node_modules/pkg/index.js":   `module.exports = {}`,
		"dist/bundle.js":              `var a`,
		"src/vendor.min.js":           `var b`,
		"types/index.d.ts":            `export {}`,
		"src/pages/about/index.astro": `---`,
	})

	s := NewScanner(config.DefaultConfig())
	files, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	assertPaths(t, relAll(t, tmpDir, files), []string{
		"index.html",
		"src/App.vue",
		"src/components/Card.tsx",
		"src/pages/about/index.astro",
	})
}

func TestScanDirCustomGlobs(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"views/home.blade.php": ``,
		"views/vendor/x.php":   ``,
		"index.html":           ``,
	})

	cfg := config.DefaultConfig()
	cfg.Scan.Globs = []string{"views/**/*.php"}
	cfg.Scan.IgnoreGlobs = []string{"**/vendor/**"}

	files, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	assertPaths(t, relAll(t, tmpDir, files), []string{"views/home.blade.php"})
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":           "skipme\n*.generated.html\n",
		"index.html":           ``,
		"skipme/skip.html":     ``,
		"src/app.html":         ``,
		"src/a.generated.html": ``,
	})

	cfg := config.DefaultConfig()

	files, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	assertPaths(t, relAll(t, tmpDir, files), []string{"index.html", "src/app.html"})

	cfg.Scan.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	assertPaths(t, relAll(t, tmpDir, files), []string{
		"index.html",
		"skipme/skip.html",
		"src/a.generated.html",
		"src/app.html",
	})
}

func TestScanDirGitignoreFromSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":          "web/legacy\n",
		"web/index.html":      ``,
		"web/legacy/old.html": ``,
	})

	root := filepath.Join(tmpDir, "web")
	files, err := NewScanner(nil).ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	assertPaths(t, relAll(t, root, files), []string{"index.html"})
}

func TestScanDirEmptyDirectory(t *testing.T) {
	files, err := NewScanner(nil).ScanDir(t.TempDir())
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestScanDirInvalidGlob(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.IgnoreGlobs = []string{"[unclosed"}

	_, err := NewScanner(cfg).ScanDir(t.TempDir())
	var globErr *GlobError
	if !errors.As(err, &globErr) {
		t.Fatalf("ScanDir() error = %v, want *GlobError", err)
	}
	if globErr.Pattern != "[unclosed" {
		t.Errorf("Pattern = %q", globErr.Pattern)
	}
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"a/index.html": ``,
		"b/page.vue":   ``,
		"notes.txt":    ``,
	})

	s := NewScanner(nil)
	files, err := s.Scan([]string{
		filepath.Join(tmpDir, "b"),
		filepath.Join(tmpDir, "a"),
		filepath.Join(tmpDir, "a", "index.html"),
		filepath.Join(tmpDir, "notes.txt"),
	})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	assertPaths(t, relAll(t, tmpDir, files), []string{"a/index.html", "b/page.vue", "notes.txt"})
}

func TestScanMissingPath(t *testing.T) {
	_, err := NewScanner(nil).Scan([]string{filepath.Join(t.TempDir(), "missing")})
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("Scan() error = %v, want *PathError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("PathError should unwrap to os.ErrNotExist")
	}
}

func TestScanDirWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{"real.html": ``})
	testutil.CreateFileTree(t, outside, map[string]string{"secret.html": ``})

	if err := os.Symlink(filepath.Join(tmpDir, "real.html"), filepath.Join(tmpDir, "link.html")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	if err := os.Symlink(filepath.Join(outside, "secret.html"), filepath.Join(tmpDir, "escape.html")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	files, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	assertPaths(t, relAll(t, tmpDir, files), []string{"link.html", "real.html"})
}

func TestFilterTree(t *testing.T) {
	entries := []vcs.TreeEntry{
		{Path: "src/App.vue", Size: 10},
		{Path: "index.html", Size: 10},
		{Path: "node_modules/x/index.js", Size: 10},
		{Path: "big.html", Size: 5000},
		{Path: "go.mod", Size: 10},
	}

	files, skipped, err := NewScanner(nil).FilterTree(entries, 1000)
	if err != nil {
		t.Fatalf("FilterTree() error: %v", err)
	}
	assertPaths(t, files, []string{"index.html", "src/App.vue"})
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestFilterBySize(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{"small.html": "small"})
	large := make([]byte, 1024)
	for i := range large {
		large[i] = 'x'
	}
	largeFile := filepath.Join(tmpDir, "large.html")
	if err := os.WriteFile(largeFile, large, 0644); err != nil {
		t.Fatal(err)
	}
	smallFile := filepath.Join(tmpDir, "small.html")
	missing := filepath.Join(tmpDir, "missing.html")

	t.Run("no limit", func(t *testing.T) {
		filtered, skipped := FilterBySize([]string{smallFile, largeFile}, 0)
		if len(filtered) != 2 || skipped != 0 {
			t.Errorf("FilterBySize() = %v, %d", filtered, skipped)
		}
	})

	t.Run("limit", func(t *testing.T) {
		filtered, skipped := FilterBySize([]string{smallFile, largeFile, missing}, 100)
		assertPaths(t, filtered, []string{smallFile})
		if skipped != 2 {
			t.Errorf("skipped = %d, want 2", skipped)
		}
	})
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/x", "/a/b", false},
	}
	for _, tt := range tests {
		if got := isWithinRoot(tt.path, tt.root); got != tt.want {
			t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}

func TestMatchAndSkipsDir(t *testing.T) {
	s := NewScanner(config.DefaultConfig())

	matches := map[string]bool{
		"index.html":                 true,
		"src/App.vue":                true,
		"src/app.min.js":             false,
		"types/app.d.ts":             false,
		"node_modules/pkg/a.html":    false,
		"web/node_modules/pkg/a.tsx": false,
		"README.md":                  false,
	}
	for rel, want := range matches {
		if got := s.Match(rel); got != want {
			t.Errorf("Match(%q) = %v, want %v", rel, got, want)
		}
	}

	skips := map[string]bool{
		".git":           true,
		"web/.git":       true,
		"node_modules":   true,
		"web/dist":       true,
		"src":            false,
		"src/components": false,
	}
	for rel, want := range skips {
		if got := s.SkipsDir(rel); got != want {
			t.Errorf("SkipsDir(%q) = %v, want %v", rel, got, want)
		}
	}
}
