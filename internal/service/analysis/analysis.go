// Package analysis runs a complete class pattern analysis: discover files,
// extract and score patterns, then emit the configured outputs.
package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/panbanda/clasp/internal/cache"
	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/internal/progress"
	"github.com/panbanda/clasp/internal/scanner"
	"github.com/panbanda/clasp/internal/vcs"
	"github.com/panbanda/clasp/pkg/analyzer/classes"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/panbanda/clasp/pkg/source"
)

// Service orchestrates class pattern analysis runs. One Service may run many
// times; the extraction cache is shared across runs.
type Service struct {
	config *config.Config
	opener vcs.Opener
	stdout io.Writer
	stderr io.Writer

	cacheOnce sync.Once
	cache     *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithOutput sets where console output and progress are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Service) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithCache sets the extraction cache instead of building one from config.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		opener: vcs.DefaultOpener(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault().Config
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Options configures a single run.
type Options struct {
	// Paths are files or directories to scan. Empty means ".".
	Paths []string
	// Ref analyzes a git revision of the repository containing Paths[0]
	// instead of the working tree.
	Ref string
	// Format selects the console rendering.
	Format output.Format
	// Colored enables ANSI color in console output.
	Colored bool
	// Progress draws a progress bar on stderr.
	Progress bool
	// AnalyzerOptions are applied after the configuration.
	AnalyzerOptions []classes.Option
}

// Run discovers files, analyzes them and emits the configured outputs.
// Per-file failures never abort the run. When the JSON report cannot be
// written the computed report is still returned, together with a
// *output.WriteError.
func (s *Service) Run(ctx context.Context, opts Options) (*classes.Report, error) {
	files, src, skipped, err := s.discover(opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		slog.Warn("no files matched", "paths", opts.Paths, "globs", s.config.Scan.Globs)
	}

	tracker := progress.Quiet("Analyzing")
	if opts.Progress && len(files) > 0 {
		tracker = progress.NewTracker("Analyzing", len(files), progress.WithWriter(s.stderr))
	}

	aopts := []classes.Option{
		classes.WithConfig(s.config),
		classes.WithCache(s.extractionCache()),
		classes.WithProgress(tracker.Tick),
	}
	a, err := classes.New(append(aopts, opts.AnalyzerOptions...)...)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}

	report, err := a.Analyze(ctx, files, src)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	tracker.FinishSuccess()
	report.FilesSkipped += skipped

	return report, s.emit(report, opts)
}

// discover resolves the file set and the source its content is read from.
// Files over the size limit are dropped here and counted as skipped.
func (s *Service) discover(opts Options) ([]string, source.ContentSource, int, error) {
	scan := scanner.NewScanner(s.config)

	if opts.Ref == "" {
		files, err := scan.Scan(opts.Paths)
		if err != nil {
			return nil, nil, 0, err
		}
		files, skipped := scanner.FilterBySize(files, s.config.MaxFileSizeBytes())
		return files, source.NewFilesystem(), skipped, nil
	}

	repoPath := "."
	if len(opts.Paths) > 0 {
		repoPath = opts.Paths[0]
	}
	repo, err := s.opener.Open(repoPath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("opening repository %s: %w", repoPath, err)
	}
	tree, err := repo.TreeAt(opts.Ref)
	if err != nil {
		return nil, nil, 0, err
	}
	entries, err := tree.Entries()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("listing %s: %w", opts.Ref, err)
	}
	files, skipped, err := scan.FilterTree(entries, s.config.MaxFileSizeBytes())
	if err != nil {
		return nil, nil, 0, err
	}
	return files, source.NewTree(tree), skipped, nil
}

func (s *Service) extractionCache() *cache.Cache {
	s.cacheOnce.Do(func() {
		if s.cache != nil {
			return
		}
		cc := s.config.Cache
		c, err := cache.New(cc.Dir, cc.TTL, cc.Enabled)
		if err != nil {
			slog.Warn("extraction cache disabled", "dir", cc.Dir, "error", err)
			return
		}
		s.cache = c
	})
	return s.cache
}

// emit prints the console preview and writes the JSON report file.
func (s *Service) emit(report *classes.Report, opts Options) error {
	out := s.config.Output

	if out.Console.Enabled {
		f := output.NewWriterFormatter(opts.Format, s.stdout, opts.Colored)
		if err := f.Output(output.NewPatternReport(report, out.Console.Top)); err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
	}

	if out.JSON.Enabled && out.JSON.Path != "" {
		if err := output.WriteJSONFile(out.JSON.Path, report); err != nil {
			return err
		}
		slog.Debug("wrote report", "path", out.JSON.Path)
	}
	return nil
}
