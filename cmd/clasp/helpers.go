package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/internal/progress"
	"github.com/panbanda/clasp/internal/remote"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/spf13/cobra"
)

// getPaths returns paths from args, defaulting to ["."]
func getPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

// resolveRemote clones a single path that names a remote repository, such
// as owner/repo@tag, and returns the clone directory in its place. The
// returned cleanup removes the clone.
func resolveRemote(ctx context.Context, w io.Writer, paths []string, ref string) ([]string, func(), error) {
	noop := func() {}
	if len(paths) != 1 {
		return paths, noop, nil
	}
	src, err := remote.Parse(paths[0])
	if err != nil {
		return nil, noop, err
	}
	if src == nil {
		return paths, noop, nil
	}

	var cloneLog io.Writer
	if verbose {
		cloneLog = w
	}
	spinner := progress.NewSpinner("Cloning "+src.URL, progress.WithWriter(w))
	// --ref resolves against history, so only clone shallow without it.
	if err := src.Clone(ctx, cloneLog, ref == ""); err != nil {
		spinner.FinishError(err)
		return nil, noop, err
	}
	spinner.FinishSuccess()
	slog.Debug("cloned", "url", src.URL, "ref", src.Ref, "dir", src.CloneDir)
	return []string{src.CloneDir}, func() {
		if err := src.Cleanup(); err != nil {
			slog.Warn("removing clone", "error", err)
		}
	}, nil
}

// loadConfig loads --config, CLASP_CONFIG or the standard locations. A
// missing or malformed file falls back to the defaults with a warning.
func loadConfig() *config.Config {
	var opts []config.LoadOption
	if cfgFile != "" {
		opts = append(opts, config.WithPath(cfgFile))
	}
	result := config.LoadOrDefault(opts...)
	if result.Source != "" {
		slog.Debug("loaded config", "path", result.Source)
	}
	return result.Config
}

// addAnalysisFlags registers the flags shared by analyze and watch.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("threshold", config.DefaultSimilarityThreshold, "Minimum Jaccard similarity to join a cluster (0.5 clusters aggressively)")
	f.Int("min-occurrences", config.DefaultMinOccurrences, "Drop patterns seen fewer times")
	f.Int("min-variants", config.DefaultMinVariants, "Drop clusters with fewer member patterns")
	f.Int("top", config.DefaultConsoleTop, "Number of clusters shown on the console (0 = all)")
	f.String("json-out", "", "Write the JSON report to this path")
	f.Bool("no-json", false, "Do not write the JSON report")
	f.Bool("no-console", false, "Do not print the cluster table")
	f.StringArray("ignore", nil, "Additional ignore glob (repeatable)")
	f.StringArray("glob", nil, "Include glob, replacing the configured ones (repeatable)")
	f.StringP("format", "f", "text", "Console format: text, json, markdown, toon")
	f.Bool("no-cache", false, "Disable the extraction cache")
	f.Bool("no-progress", false, "Hide the progress bar")
}

// applyAnalysisFlags overrides cfg with every flag the user set explicitly.
// Out-of-range values fall back to defaults with a warning.
func applyAnalysisFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}

	set("threshold", func() (e error) { cfg.Patterns.SimilarityThreshold, e = f.GetFloat64("threshold"); return })
	set("min-occurrences", func() (e error) { cfg.Patterns.MinOccurrences, e = f.GetInt("min-occurrences"); return })
	set("min-variants", func() (e error) { cfg.Patterns.MinVariants, e = f.GetInt("min-variants"); return })
	set("top", func() (e error) { cfg.Output.Console.Top, e = f.GetInt("top"); return })
	set("json-out", func() (e error) {
		cfg.Output.JSON.Path, e = f.GetString("json-out")
		cfg.Output.JSON.Enabled = true
		return
	})
	set("no-json", func() error {
		off, e := f.GetBool("no-json")
		cfg.Output.JSON.Enabled = cfg.Output.JSON.Enabled && !off
		return e
	})
	set("no-console", func() error {
		off, e := f.GetBool("no-console")
		cfg.Output.Console.Enabled = cfg.Output.Console.Enabled && !off
		return e
	})
	set("ignore", func() error {
		globs, e := f.GetStringArray("ignore")
		cfg.Scan.IgnoreGlobs = slices.Concat(cfg.Scan.IgnoreGlobs, globs)
		return e
	})
	set("glob", func() (e error) { cfg.Scan.Globs, e = f.GetStringArray("glob"); return })
	set("no-cache", func() error {
		off, e := f.GetBool("no-cache")
		cfg.Cache.Enabled = cfg.Cache.Enabled && !off
		return e
	})
	if err != nil {
		return err
	}

	for _, w := range cfg.Sanitize() {
		slog.Warn("flag value replaced", "detail", w)
	}
	return nil
}

// consoleFormat reads --format.
func consoleFormat(cmd *cobra.Command) (output.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	switch s {
	case "text", "json", "markdown", "md", "toon":
		return output.ParseFormat(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, markdown or toon)", s)
	}
}

// colored reports whether console output should use ANSI color.
func colored(cfg *config.Config) bool {
	return cfg.Output.Color && !color.NoColor
}

func showProgress(cmd *cobra.Command) bool {
	off, _ := cmd.Flags().GetBool("no-progress")
	return !off && !color.NoColor
}
