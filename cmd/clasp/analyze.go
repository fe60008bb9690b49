package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/internal/service/analysis"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path...]",
	Short: "Find and rank repeated class patterns",
	Long: `Scans template files for class lists, clusters similar combinations and
prints the top clusters by extraction likelihood. The full report is written
as JSON (reports/class-patterns.json by default).

Examples:
  clasp analyze                         # Scan the current directory
  clasp analyze src --threshold 0.5     # Cluster more aggressively
  clasp analyze --ref main --no-json    # Analyze the main branch
  clasp analyze vuejs/core@v3.4.0       # Clone and analyze a remote repository
  clasp analyze --ignore '**/stories/**' --format markdown`,
	RunE: runAnalyze,
}

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().String("ref", "", "Analyze a git revision instead of the working tree")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	format, err := consoleFormat(cmd)
	if err != nil {
		return err
	}
	ref, _ := cmd.Flags().GetString("ref")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths, cleanup, err := resolveRemote(ctx, cmd.ErrOrStderr(), getPaths(args), ref)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	report, err := svc.Run(ctx, analysis.Options{
		Paths:    paths,
		Ref:      ref,
		Format:   format,
		Colored:  colored(cfg),
		Progress: showProgress(cmd),
	})

	status := output.NewWriterFormatter(format, cmd.ErrOrStderr(), colored(cfg))
	var writeErr *output.WriteError
	if errors.As(err, &writeErr) {
		status.Error("Failed to write report to %s", writeErr.Path)
		return err
	}
	if err != nil {
		return err
	}

	if report.FilesSkipped > 0 {
		status.Warning("Skipped %d unreadable or oversized files", report.FilesSkipped)
	}
	if cfg.Output.JSON.Enabled && cfg.Output.JSON.Path != "" {
		status.Success("Report written to %s", cfg.Output.JSON.Path)
	}
	return nil
}
