package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validates a clasp configuration file against the schema. Unlike a normal
run, which replaces bad values with defaults, validation reports every problem.

Examples:
  clasp config validate                  # Validates default config locations
  clasp config validate -c clasp.toml    # Validates specific file`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Shows the merged configuration from defaults and config file.

Examples:
  clasp config show                 # Show effective config as TOML
  clasp config show --format yaml   # Show as YAML`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringP("format", "f", "toml", "Output format: toml, yaml, json")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func configOptions() []config.LoadOption {
	if cfgFile == "" {
		return nil
	}
	return []config.LoadOption{config.WithPath(cfgFile)}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	result, err := config.LoadConfig(configOptions()...)
	if err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", err)
		return err
	}

	if result.Source == "" {
		color.Yellow("No config file found. Default configuration is valid.")
		return nil
	}

	if err := config.Validate(result.Source); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", err)
		return err
	}
	color.Green("Configuration valid: %s", result.Source)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	result, err := config.LoadConfig(configOptions()...)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	content, err := marshalConfig(result.Config, format)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	comment := "#"
	if format == "json" {
		comment = ""
	}
	if comment != "" {
		if result.Source != "" {
			fmt.Fprintf(w, "%s Configuration from: %s\n\n", comment, result.Source)
		} else {
			fmt.Fprintf(w, "%s Default configuration (no config file found)\n\n", comment)
		}
	}
	for _, warning := range result.Warnings {
		slog.Warn("config value replaced", "detail", warning)
	}
	_, err = w.Write(content)
	return err
}

func marshalConfig(cfg *config.Config, format string) ([]byte, error) {
	var (
		content []byte
		err     error
	)
	switch format {
	case "toml", "":
		content, err = toml.Marshal(cfg)
	case "yaml", "yml":
		content, err = yaml.Marshal(cfg)
	case "json":
		content, err = json.MarshalIndent(cfg, "", "  ")
		content = append(content, '\n')
	default:
		return nil, fmt.Errorf("unknown format %q (want toml, yaml or json)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return content, nil
}
