package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/clasp/internal/service/analysis"
	"github.com/panbanda/clasp/pkg/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-run the analysis when template files change",
	Long: `Runs the analysis once, then again after every burst of changes to files
matched by the scan globs. The extraction cache is kept in memory between
runs, so only changed files are re-extracted.

Examples:
  clasp watch src
  clasp watch --debounce 1s --threshold 0.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addAnalysisFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before re-running")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	format, err := consoleFormat(cmd)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	root := getPaths(args)[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	opts := analysis.Options{
		Paths:   []string{root},
		Format:  format,
		Colored: colored(cfg),
	}
	run := func() {
		if _, err := svc.Run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
			color.Red("Error: %v", err)
		}
	}

	run()

	w, err := watch.NewWatcher(root, cfg, debounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	w.SetCallback(func(changed []string) {
		color.Yellow("\n%d file(s) changed, re-analyzing", len(changed))
		run()
	})

	color.Cyan("Watching for changes in %s... (Ctrl+C to stop)", root)
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
