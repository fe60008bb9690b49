// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// File reads dominate, so more workers than cores keeps the disk busy.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Result is the outcome of processing one file.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// MapOrdered processes files in parallel and returns one Result per input
// path, in input order regardless of completion order. A failing file does
// not stop the others. Files not started before ctx is cancelled carry the
// context error.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapOrdered[T any](ctx context.Context, files []string, maxWorkers int, fn func(context.Context, string) (T, error), onProgress ProgressFunc) []Result[T] {
	if len(files) == 0 {
		return nil
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	// Each goroutine owns one slot, so no lock is needed.
	results := make([]Result[T], len(files))

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			results[i].Path = path

			select {
			case <-ctx.Done():
				results[i].Err = ctx.Err()
			default:
				results[i].Value, results[i].Err = fn(ctx, path)
			}

			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	_ = p.Wait() // per-file errors live in results

	return results
}

// CollectErrors gathers the failed results into a ProcessingErrors, or nil
// when every file succeeded.
func CollectErrors[T any](results []Result[T]) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for _, r := range results {
		if r.Err != nil {
			errs.Add(r.Path, r.Err)
		}
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}
