// Package vcs provides read access to files at a git revision.
package vcs

// Repository is an opened git repository.
type Repository interface {
	// Root returns the working tree root, or the repository path when bare.
	Root() string
	// TreeAt resolves rev (branch, tag, short or full hash, HEAD~n) and
	// returns the tree of the commit it names.
	TreeAt(rev string) (Tree, error)
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// Entries returns all files in the tree (recursively), sorted by path.
	Entries() ([]TreeEntry, error)
	// File returns the content of the file at path, relative to the root.
	File(path string) ([]byte, error)
}

// Opener opens git repositories.
type Opener interface {
	// Open opens the repository containing path, searching parent
	// directories for .git.
	Open(path string) (Repository, error)
}
