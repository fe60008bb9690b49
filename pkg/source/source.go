// Package source reads file content for analysis from the working tree, a
// git revision or memory.
package source

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panbanda/clasp/internal/vcs"
)

// ContentSource returns the bytes of a discovered file. Implementations
// must be safe for concurrent use; the analyzer reads files in parallel.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// FilesystemSource reads the working tree.
type FilesystemSource struct{}

// NewFilesystem returns a source backed by os.ReadFile.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

func (FilesystemSource) Read(p string) ([]byte, error) {
	return os.ReadFile(p)
}

// TreeSource reads blobs from a git tree. Object access is serialized
// because go-git storers are not safe for parallel reads.
type TreeSource struct {
	mu   sync.Mutex
	tree vcs.Tree
}

// NewTree returns a source reading from tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Read accepts OS-style or ./-prefixed paths and resolves them against the
// repository root.
func (t *TreeSource) Read(p string) ([]byte, error) {
	p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(p)
}

// MapSource serves content from memory.
type MapSource map[string][]byte

func (m MapSource) Read(p string) ([]byte, error) {
	content, ok := m[p]
	if !ok {
		return nil, &os.PathError{Op: "read", Path: p, Err: os.ErrNotExist}
	}
	return content, nil
}
