package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a failure to write an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteJSONFile writes data as indented JSON to path, creating parent
// directories as needed.
func WriteJSONFile(path string, data any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
