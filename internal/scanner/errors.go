package scanner

import "fmt"

// PathError reports a scan root that cannot be read.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// GlobError reports a malformed include or ignore pattern.
type GlobError struct {
	Pattern string
}

func (e *GlobError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q", e.Pattern)
}
