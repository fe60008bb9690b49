package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/clasp/internal/cache"
	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/internal/testutil"
	"github.com/panbanda/clasp/pkg/analyzer/classes"
	"github.com/panbanda/clasp/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func flagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addAnalysisFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestGetPaths(t *testing.T) {
	assert.Equal(t, []string{"."}, getPaths(nil))
	assert.Equal(t, []string{"/foo", "/bar"}, getPaths([]string{"/foo", "/bar"}))
}

func TestApplyAnalysisFlags(t *testing.T) {
	cmd := flagCommand(t,
		"--threshold", "0.5",
		"--min-occurrences", "1",
		"--min-variants", "2",
		"--top", "5",
		"--json-out", "out/report.json",
		"--no-console",
		"--ignore", "**/stories/**",
		"--glob", "**/*.{vue,svelte}",
		"--no-cache",
	)
	cfg := config.DefaultConfig()
	require.NoError(t, applyAnalysisFlags(cmd, cfg))

	assert.Equal(t, 0.5, cfg.Patterns.SimilarityThreshold)
	assert.Equal(t, 1, cfg.Patterns.MinOccurrences)
	assert.Equal(t, 2, cfg.Patterns.MinVariants)
	assert.Equal(t, 5, cfg.Output.Console.Top)
	assert.Equal(t, "out/report.json", cfg.Output.JSON.Path)
	assert.True(t, cfg.Output.JSON.Enabled)
	assert.False(t, cfg.Output.Console.Enabled)
	assert.Contains(t, cfg.Scan.IgnoreGlobs, "**/stories/**")
	assert.Contains(t, cfg.Scan.IgnoreGlobs, "**/node_modules/**", "ignore globs are added, not replaced")
	assert.Equal(t, []string{"**/*.{vue,svelte}"}, cfg.Scan.Globs, "brace globs must not be split on commas")
	assert.False(t, cfg.Cache.Enabled)
}

func TestApplyAnalysisFlagsKeepsConfigWhenUnset(t *testing.T) {
	cmd := flagCommand(t)
	cfg := config.DefaultConfig()
	cfg.Patterns.SimilarityThreshold = 0.6
	cfg.Output.JSON.Path = "custom.json"

	require.NoError(t, applyAnalysisFlags(cmd, cfg))
	assert.Equal(t, 0.6, cfg.Patterns.SimilarityThreshold)
	assert.Equal(t, "custom.json", cfg.Output.JSON.Path)
	assert.True(t, cfg.Cache.Enabled)
}

func TestApplyAnalysisFlagsOutOfRange(t *testing.T) {
	cmd := flagCommand(t, "--threshold", "1.5", "--min-occurrences", "0")
	cfg := config.DefaultConfig()

	require.NoError(t, applyAnalysisFlags(cmd, cfg))
	assert.Equal(t, config.DefaultSimilarityThreshold, cfg.Patterns.SimilarityThreshold)
	assert.Equal(t, config.DefaultMinOccurrences, cfg.Patterns.MinOccurrences)
}

func TestApplyAnalysisFlagsNoJSON(t *testing.T) {
	cmd := flagCommand(t, "--no-json")
	cfg := config.DefaultConfig()

	require.NoError(t, applyAnalysisFlags(cmd, cfg))
	assert.False(t, cfg.Output.JSON.Enabled)
}

func TestConsoleFormat(t *testing.T) {
	tests := []struct {
		arg  string
		want output.Format
	}{
		{"text", output.FormatText},
		{"json", output.FormatJSON},
		{"md", output.FormatMarkdown},
		{"toon", output.FormatTOON},
	}
	for _, tt := range tests {
		got, err := consoleFormat(flagCommand(t, "--format", tt.arg))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := consoleFormat(flagCommand(t, "--format", "xml"))
	assert.Error(t, err)
}

func TestGenerateDefaultConfigRoundTrips(t *testing.T) {
	content, err := generateDefaultConfig()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "# clasp configuration"))

	path := filepath.Join(t.TempDir(), "clasp.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, warnings, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	want := config.DefaultConfig()
	assert.Equal(t, want.Patterns, cfg.Patterns)
	assert.Equal(t, want.Scan, cfg.Scan)
	assert.Equal(t, want.Extract.Strategies, cfg.Extract.Strategies)
	assert.Equal(t, want.Extract.FileTypes, cfg.Extract.FileTypes)

	require.NoError(t, config.Validate(path))
}

func TestMarshalConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	data, err := marshalConfig(cfg, "yaml")
	require.NoError(t, err)
	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Patterns, decoded.Patterns)

	data, err = marshalConfig(cfg, "json")
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	_, err = marshalConfig(cfg, "ini")
	assert.Error(t, err)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".clasp", "clasp.toml")

	_, err := execute(t, "init", "-o", path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# 0.75 is conservative, 0.5 clusters aggressively.\n[patterns]")
	assert.Contains(t, content, "ttl is in hours.\n[cache]")

	loaded, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Patterns, loaded.Patterns)

	_, err = execute(t, "init", "-o", path)
	assert.Error(t, err, "existing file needs --force")

	_, err = execute(t, "init", "-o", path, "--force")
	assert.NoError(t, err)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "clasp.yaml")
	testutil.WriteFile(t, good, "patterns:\n  similarity_threshold: 0.5\n")
	bad := filepath.Join(dir, "bad.yaml")
	testutil.WriteFile(t, bad, "patterns:\n  similarity_threshold: high\n")

	out, err := execute(t, "config", "show", "-c", good, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration from: "+good)
	assert.Contains(t, out, "similarity_threshold: 0.5")

	_, err = execute(t, "config", "validate", "-c", good)
	assert.NoError(t, err)

	_, err = execute(t, "config", "validate", "-c", bad)
	assert.Error(t, err)

	_, err = execute(t, "config", "validate", "-c", filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{
		"a.html": `<div class="flex gap-4 items-center"></div><div class="flex gap-4 justify-center"></div>`,
		"b.tsx":  `export const B = () => <div className="items-center gap-4 flex" />`,
	})
	reportPath := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "analyze", dir,
		"--threshold", "0.5",
		"--min-occurrences", "1",
		"--json-out", reportPath,
		"--format", "json",
		"--no-cache",
		"--no-progress",
	)
	require.NoError(t, err)

	var console classes.Report
	require.NoError(t, json.Unmarshal([]byte(out), &console), "console output: %s", out)
	require.Len(t, console.Clusters, 1)
	assert.Equal(t, 3, console.Clusters[0].Occurrences)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var written classes.Report
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, console.Clusters[0].Members, written.Clusters[0].Members)
}

func TestMCPManifestCommand(t *testing.T) {
	out, err := execute(t, "mcp", "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, "io.github.panbanda/clasp")
}

func TestResolveRemoteLocalPaths(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	paths, cleanup, err := resolveRemote(context.Background(), &out, []string{dir}, "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{dir}, paths)
	assert.Empty(t, out.String())

	paths, cleanup, err = resolveRemote(context.Background(), &out, []string{"owner/repo", dir}, "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{"owner/repo", dir}, paths, "multiple paths are never cloned")
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	cfgPath := filepath.Join(dir, "clasp.toml")
	testutil.WriteFile(t, cfgPath, "[cache]\ndir = \""+filepath.ToSlash(cacheDir)+"\"\n")

	c, err := cache.New(cacheDir, 1, true)
	require.NoError(t, err)
	require.NoError(t, c.Set(cache.Key([]byte("<div></div>"), 1), []byte("{}")))

	out, err := execute(t, "cache", "stats", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:         1")

	_, err = execute(t, "cache", "clear", "-c", cfgPath)
	require.NoError(t, err)
	assert.NoDirExists(t, cacheDir)
}
