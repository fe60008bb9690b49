// Package scanner discovers template files to analyze.
package scanner

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/clasp/internal/vcs"
	"github.com/panbanda/clasp/pkg/config"
)

// Scanner finds files matching the configured include globs that no ignore
// glob or .gitignore rule excludes. Globs are matched against slash-separated
// paths relative to the scan root.
type Scanner struct {
	config   *config.Config
	matcher  gitignore.Matcher
	gitRoot  string
	patterns []string
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

func (s *Scanner) validate() error {
	for _, p := range slices.Concat(s.config.Scan.Globs, s.config.Scan.IgnoreGlobs) {
		if !doublestar.ValidatePattern(p) {
			return &GlobError{Pattern: p}
		}
	}
	return nil
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore reads every .gitignore in the repository containing root.
func (s *Scanner) loadGitignore(absRoot string) {
	s.matcher = nil
	s.gitRoot = ""
	if !s.config.Scan.Gitignore {
		return
	}
	gitRoot := findGitRoot(absRoot)
	if gitRoot == "" {
		return
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(patterns) == 0 {
		return
	}
	s.matcher = gitignore.NewMatcher(patterns)
	s.gitRoot = gitRoot
}

func (s *Scanner) gitignored(absPath string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(s.gitRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return s.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// ignored reports whether the slash-separated relative path matches an
// ignore glob.
func (s *Scanner) ignored(rel string) bool {
	for _, p := range s.config.Scan.IgnoreGlobs {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// prunable reports whether every path below the directory rel is ignored.
func (s *Scanner) prunable(rel string) bool {
	for _, p := range s.config.Scan.IgnoreGlobs {
		dir, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if match, _ := doublestar.Match(dir, rel); match {
			return true
		}
	}
	return false
}

// included reports whether the slash-separated relative path matches an
// include glob.
func (s *Scanner) included(rel string) bool {
	for _, p := range s.config.Scan.Globs {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Match reports whether the slash-separated path, relative to a scan root,
// would be selected by the globs. .gitignore rules are not consulted.
func (s *Scanner) Match(rel string) bool {
	return s.included(rel) && !s.ignored(rel) && !s.underPrunedDir(rel)
}

// SkipsDir reports whether a directory, relative to a scan root, is never
// descended into.
func (s *Scanner) SkipsDir(rel string) bool {
	return path.Base(rel) == ".git" || s.prunable(rel)
}

// Scan resolves each path argument: directories are walked, files are taken
// as given. The result is sorted and free of duplicates. A path that does
// not exist is a *PathError.
func (s *Scanner) Scan(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &PathError{Path: p, Err: err}
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// ScanDir recursively scans a directory for matching files, in sorted order.
// Validates that symlinked paths stay within the root directory.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}

	s.loadGitignore(absRoot)

	files := make([]string, 0, 256)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}
		rel := filepath.ToSlash(relPath)
		absPath := filepath.Join(absRoot, relPath)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.SkipsDir(rel) || s.gitignored(absPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.included(rel) && !s.ignored(rel) && !s.gitignored(absPath, false) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, &PathError{Path: root, Err: walkErr}
	}

	slices.Sort(files)
	return files, nil
}

// FilterTree selects git tree entries the way ScanDir selects files on disk.
// Entries above maxSize (0 = no limit) are counted as skipped.
func (s *Scanner) FilterTree(entries []vcs.TreeEntry, maxSize int64) ([]string, int, error) {
	if err := s.validate(); err != nil {
		return nil, 0, err
	}

	var files []string
	skipped := 0
	for _, e := range entries {
		if !s.Match(e.Path) {
			continue
		}
		if maxSize > 0 && e.Size > maxSize {
			skipped++
			continue
		}
		files = append(files, e.Path)
	}
	slices.Sort(files)
	return files, skipped, nil
}

func (s *Scanner) underPrunedDir(rel string) bool {
	for dir := rel; ; {
		i := strings.LastIndexByte(dir, '/')
		if i < 0 {
			return false
		}
		dir = dir[:i]
		if s.prunable(dir) {
			return true
		}
	}
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// FilterBySize filters files that exceed the configured maximum size.
// Returns the filtered list and the count of files that were skipped.
// If maxSize is 0, returns the original list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			skipped++
			continue
		}
		if info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}

	return filtered, skipped
}
