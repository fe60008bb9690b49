// Package remote clones repositories named on the command line so their
// templates can be analyzed like a local tree.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

var urlSchemes = []string{"https://", "http://", "ssh://", "git://", "file://"}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	// path@ref, where the @ follows the last slash
	ref := ""
	if idx := strings.LastIndex(path, "@"); idx > strings.LastIndex(path, "/") {
		ref = path[idx+1:]
		path = path[:idx]
		if ref == "" {
			return nil, fmt.Errorf("empty ref in %q", path+"@")
		}
	}

	for _, scheme := range urlSchemes {
		if strings.HasPrefix(path, scheme) {
			return &Source{URL: path, Ref: ref}, nil
		}
	}
	if strings.HasPrefix(path, "git@") && strings.Contains(path, ":") {
		return &Source{URL: path, Ref: ref}, nil
	}
	if isHostPath(path) {
		return &Source{URL: "https://" + path, Ref: ref}, nil
	}
	if isGitHubShorthand(path) {
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}

	return nil, nil
}

// isHostPath matches host/owner/repo, e.g. gitlab.com/group/project.
func isHostPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || !strings.Contains(parts[0], ".") || strings.HasPrefix(parts[0], ".") {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 || strings.Count(path, "/") != 1 {
		return false
	}
	// A dot before the slash would indicate a domain or a relative path.
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone clones the repository into a new temp directory and checks out Ref.
// A shallow clone fetches only the tip of the selected branch or tag; commit
// SHAs always need the full history. Call Cleanup when done.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "clasp-clone-*")
	if err != nil {
		return fmt.Errorf("creating clone dir: %w", err)
	}
	s.CloneDir = dir

	isHash := s.Ref != "" && plumbing.IsHash(s.Ref)

	var candidates []plumbing.ReferenceName
	switch {
	case s.Ref == "" || isHash:
		candidates = []plumbing.ReferenceName{""}
	default:
		candidates = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(s.Ref),
			plumbing.NewTagReferenceName(s.Ref),
		}
	}

	var repo *git.Repository
	for _, name := range candidates {
		opts := &git.CloneOptions{
			URL:           s.URL,
			ReferenceName: name,
			SingleBranch:  name != "",
			Progress:      progress,
		}
		if shallow && !isHash {
			opts.Depth = 1
		}
		repo, err = git.PlainCloneContext(ctx, dir, false, opts)
		if err == nil || !refNotFound(err) {
			break
		}
		if err := resetDir(dir); err != nil {
			return err
		}
	}
	if err != nil {
		s.Cleanup()
		return fmt.Errorf("cloning %s: %w", s.URL, err)
	}

	if isHash {
		wt, err := repo.Worktree()
		if err != nil {
			s.Cleanup()
			return err
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(s.Ref)}); err != nil {
			s.Cleanup()
			return fmt.Errorf("checking out %s: %w", s.Ref, err)
		}
	}
	return nil
}

func refNotFound(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	return errors.Is(err, plumbing.ErrReferenceNotFound) || errors.As(err, &noMatch)
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" {
		return nil
	}
	err := os.RemoveAll(s.CloneDir)
	s.CloneDir = ""
	return err
}
