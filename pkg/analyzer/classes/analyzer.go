package classes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/panbanda/clasp/internal/cache"
	"github.com/panbanda/clasp/internal/fileproc"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/panbanda/clasp/pkg/source"
)

// ErrFileTooLarge marks a file skipped for exceeding the size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Analyzer finds and scores repeated class combinations.
type Analyzer struct {
	threshold      float64
	minOccurrences int
	minVariants    int
	weights        Weights
	strategies     map[string]string
	fileTypes      map[string][]string
	matchTimeout   time.Duration
	maxFileSize    int64
	workers        int
	cache          *cache.Cache
	onProgress     fileproc.ProgressFunc
	now            func() time.Time

	table *StrategyTable
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithConfig applies the pattern, scoring and extraction settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		a.threshold = cfg.Patterns.SimilarityThreshold
		a.minOccurrences = cfg.Patterns.MinOccurrences
		a.minVariants = cfg.Patterns.MinVariants
		a.weights = Weights{Variant: cfg.Scoring.VariantWeight, Frequency: cfg.Scoring.FrequencyWeight}
		a.strategies = cfg.Extract.Strategies
		a.fileTypes = cfg.Extract.FileTypes
		a.matchTimeout = time.Duration(cfg.Extract.MatchTimeout) * time.Millisecond
		a.maxFileSize = cfg.MaxFileSizeBytes()
	}
}

// WithSimilarityThreshold sets the minimum Jaccard similarity for a pattern
// to join an existing cluster.
func WithSimilarityThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

// WithMinOccurrences drops patterns seen fewer times before clustering.
func WithMinOccurrences(n int) Option {
	return func(a *Analyzer) {
		a.minOccurrences = n
	}
}

// WithMinVariants drops clusters with fewer member patterns from the report.
func WithMinVariants(n int) Option {
	return func(a *Analyzer) {
		a.minVariants = n
	}
}

// WithWeights sets the likelihood scoring weights.
func WithWeights(w Weights) Option {
	return func(a *Analyzer) {
		a.weights = w
	}
}

// WithStrategies replaces the extraction strategies and file-type mapping.
func WithStrategies(strategies map[string]string, fileTypes map[string][]string) Option {
	return func(a *Analyzer) {
		a.strategies = strategies
		a.fileTypes = fileTypes
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithCache reuses extraction results for unchanged file content.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithWorkers bounds concurrent file reads (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithProgress registers a callback invoked once per processed file.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// New creates an analyzer from the default configuration and opts.
// Strategy patterns are compiled here; an invalid one is an error.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{now: time.Now}
	WithConfig(config.DefaultConfig())(a)
	for _, opt := range opts {
		opt(a)
	}

	table, err := NewStrategyTable(a.strategies, a.fileTypes, a.matchTimeout)
	if err != nil {
		return nil, err
	}
	a.table = table
	return a, nil
}

// Threshold returns the effective similarity threshold.
func (a *Analyzer) Threshold() float64 {
	return a.threshold
}

// Analyze extracts class strings from files read through src and returns
// the ranked report. Files are read concurrently but folded in sorted path
// order, so the same input always yields the same clusters. A file that
// cannot be read is logged and skipped.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src source.ContentSource) (*Report, error) {
	paths := slices.Clone(files)
	slices.Sort(paths)
	paths = slices.Compact(paths)

	results := fileproc.MapOrdered(ctx, paths, a.workers, func(_ context.Context, path string) (Extraction, error) {
		return a.extractFile(path, src)
	}, a.onProgress)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := newReport(a.threshold, a.now())
	report.TotalFiles = len(paths)

	agg := NewAggregator()
	for _, r := range results {
		if r.Err != nil {
			slog.Warn("skipping unreadable file", "path", r.Path, "error", r.Err)
			continue
		}
		for _, name := range r.Value.TimedOut {
			slog.Warn("extraction timed out", "path", r.Path, "strategy", name)
		}
		for _, name := range r.Value.StrategiesUsed {
			report.Strategies[name]++
		}
		agg.AddExtraction(r.Path, r.Value)
	}
	if errs := fileproc.CollectErrors(results); errs != nil {
		report.FilesSkipped = errs.Len()
		slog.Debug("files skipped", "count", errs.Len(), "error", errs)
	}

	report.assemble(agg, a.threshold, a.minOccurrences, a.minVariants, a.weights)
	return report, nil
}

// AnalyzeSource extracts and scores a single in-memory document.
func (a *Analyzer) AnalyzeSource(content, filePath string) *Report {
	report := newReport(a.threshold, a.now())
	report.TotalFiles = 1

	ex := FindClassesInSource(content, filePath, a.table)
	for _, name := range ex.StrategiesUsed {
		report.Strategies[name]++
	}
	agg := NewAggregator()
	agg.AddExtraction(filePath, ex)

	report.assemble(agg, a.threshold, a.minOccurrences, a.minVariants, a.weights)
	return report
}

func (a *Analyzer) extractFile(path string, src source.ContentSource) (Extraction, error) {
	content, err := src.Read(path)
	if err != nil {
		return Extraction{}, err
	}
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return Extraction{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}

	// Cache entries depend on the extension as well as the content.
	var key string
	if a.cache.Enabled() {
		key = cache.Key(append([]byte(normalizeExt(filepath.Ext(path))+"\x00"), content...), a.table.Fingerprint())
		if data, ok := a.cache.Get(key); ok {
			var ex Extraction
			if json.Unmarshal(data, &ex) == nil {
				return ex, nil
			}
		}
	}

	ex := FindClassesInSource(string(content), path, a.table)

	if key != "" && len(ex.TimedOut) == 0 {
		if data, err := json.Marshal(ex); err == nil {
			if err := a.cache.Set(key, data); err != nil {
				slog.Debug("cache write failed", "path", path, "error", err)
			}
		}
	}
	return ex, nil
}
