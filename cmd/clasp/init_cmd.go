package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new clasp configuration file",
	Long: `Creates a new clasp.toml configuration file in the current directory
with the default scan globs, extraction strategies and thresholds.

Examples:
  clasp init                      # Creates clasp.toml in current directory
  clasp init -o .clasp/clasp.toml # Creates config in .clasp directory
  clasp init --force              # Overwrite existing config file`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("output", "o", "clasp.toml", "Output file path")
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to tune thresholds, globs and extraction strategies.")
	return nil
}

// sectionNotes are written above each top-level table of the generated file.
var sectionNotes = map[string][]string{
	"scan": {
		"Files to analyze. Globs use doublestar syntax and are matched relative to each scanned root.",
		"Files larger than max_file_size are skipped and counted in files_skipped.",
	},
	"patterns": {
		"similarity_threshold is the minimum Jaccard overlap with a cluster's representative.",
		"0.75 is conservative, 0.5 clusters aggressively.",
	},
	"scoring": {
		"Likelihood is variant_weight + frequency_weight points at most, capped at 100.",
	},
	"extract": {
		"Named regular expressions (regexp2 syntax). The first non-empty capture group is the class string.",
		"A named group \"array\" parses every quoted literal in a bracketed list.",
		"file_types maps an extension without the dot to the strategies run on it.",
	},
	"cache": {
		"Per-file extraction results, keyed by content hash. ttl is in hours.",
	},
	"output": {
		"console prints the top clusters; json writes the full report to path.",
	},
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# clasp configuration\n\n")
	for _, line := range strings.SplitAfter(string(content), "\n") {
		header := strings.TrimSpace(line)
		if strings.HasPrefix(header, "[") && strings.HasSuffix(header, "]") {
			for _, note := range sectionNotes[strings.Trim(header, "[]")] {
				buf.WriteString("# " + note + "\n")
			}
		}
		buf.WriteString(line)
	}

	return buf.String(), nil
}
