package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/pkg/analyzer/classes"
	"github.com/panbanda/clasp/pkg/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Patterns.MinOccurrences = 1
	cfg.Cache.Enabled = false
	return NewServer("1.0.0-test", cfg)
}

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.html":         `<div class="flex gap-4 items-center"></div><div class="flex gap-4 justify-center"></div>`,
		"b.vue":          `<template><div class="items-center flex gap-4"></div></template>`,
		"stories/c.html": `<div class="flex gap-4 items-center"></div>`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent: %T", result.Content[0])
	}
	return text.Text
}

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test", nil)
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned no server")
	}
	if server.config == nil {
		t.Error("nil config should fall back to defaults")
	}
}

func TestToolDescriptions(t *testing.T) {
	for name, fn := range map[string]func() string{
		"class_patterns": describeClassPatterns,
		"class_source":   describeClassSource,
	} {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s", name, section)
				}
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	if got := getPaths(ClassPatternsInput{}); len(got) != 1 || got[0] != "." {
		t.Errorf("getPaths(empty) = %v, want [.]", got)
	}
	in := ClassPatternsInput{Paths: []string{"web", "app"}}
	if got := getPaths(in); len(got) != 2 || got[0] != "web" {
		t.Errorf("getPaths() = %v", got)
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected output.Format
	}{
		{"empty defaults to toon", "", output.FormatTOON},
		{"json format", "json", output.FormatJSON},
		{"markdown format", "markdown", output.FormatMarkdown},
		{"md alias", "md", output.FormatMarkdown},
		{"toon explicit", "toon", output.FormatTOON},
		{"unknown defaults to toon", "xml", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getFormat(AnalyzeInput{Format: tt.format}); got != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, got, tt.expected)
			}
		})
	}
}

func TestAnalyzerOptionsIgnoresOutOfRange(t *testing.T) {
	if opts := analyzerOptions(AnalyzeInput{SimilarityThreshold: 1.5, MinOccurrences: -1}); len(opts) != 0 {
		t.Errorf("out-of-range inputs should leave config values, got %d options", len(opts))
	}
	if opts := analyzerOptions(AnalyzeInput{SimilarityThreshold: 0.5, MinOccurrences: 3, MinVariants: 2}); len(opts) != 3 {
		t.Errorf("got %d options, want 3", len(opts))
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	if got := resultText(t, result); got != "Error: test error message" {
		t.Errorf("toolError text = %q", got)
	}
}

func TestHandleAnalyzeClassPatterns(t *testing.T) {
	s := testServer(t)
	dir := writeTemplates(t)

	input := ClassPatternsInput{
		AnalyzeInput: AnalyzeInput{Format: "json", SimilarityThreshold: 0.5},
		Paths:        []string{dir},
	}
	result, _, err := s.handleAnalyzeClassPatterns(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("handler returned tool error: %s", text)
	}

	var report classes.Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", report.TotalFiles)
	}
	if len(report.Clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(report.Clusters))
	}
	if report.Clusters[0].Occurrences != 4 {
		t.Errorf("occurrences = %d, want 4", report.Clusters[0].Occurrences)
	}
	if _, err := os.Stat(filepath.Join(dir, "reports")); !os.IsNotExist(err) {
		t.Error("tool calls should not write report files")
	}
}

func TestHandleAnalyzeClassPatternsNoFiles(t *testing.T) {
	s := testServer(t)

	input := ClassPatternsInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Paths:        []string{t.TempDir()},
	}
	result, _, err := s.handleAnalyzeClassPatterns(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("an empty directory is a valid run, got tool error: %s", text)
	}

	var report classes.Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalFiles != 0 || report.TotalClassLists != 0 || len(report.Clusters) != 0 {
		t.Errorf("report = %+v, want zero results", report)
	}
}

func TestHandleAnalyzeClassPatternsIgnore(t *testing.T) {
	s := testServer(t)
	dir := writeTemplates(t)

	input := ClassPatternsInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Paths:        []string{dir},
		Ignore:       []string{"**/stories/**"},
	}
	result, _, _ := s.handleAnalyzeClassPatterns(context.Background(), nil, input)

	var report classes.Report
	if err := json.Unmarshal([]byte(resultText(t, result)), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", report.TotalFiles)
	}
	if len(s.config.Scan.IgnoreGlobs) != len(config.DefaultConfig().Scan.IgnoreGlobs) {
		t.Error("per-call ignore globs leaked into the server config")
	}
}

func TestHandleAnalyzeClassPatternsTopAndFormats(t *testing.T) {
	s := testServer(t)
	dir := writeTemplates(t)

	for _, format := range []string{"toon", "markdown"} {
		t.Run(format, func(t *testing.T) {
			input := ClassPatternsInput{
				AnalyzeInput: AnalyzeInput{Format: format, SimilarityThreshold: 0.9, Top: 1},
				Paths:        []string{dir},
			}
			result, _, err := s.handleAnalyzeClassPatterns(context.Background(), nil, input)
			if err != nil {
				t.Fatal(err)
			}
			text := resultText(t, result)
			if result.IsError {
				t.Fatalf("tool error: %s", text)
			}
			if !strings.Contains(text, "flex gap-4 items-center") {
				t.Errorf("missing top cluster:\n%s", text)
			}
			if format == "markdown" && strings.Contains(text, "justify-center") {
				t.Errorf("top=1 should drop the second cluster:\n%s", text)
			}
		})
	}
}

func TestHandleAnalyzeClassPatternsMissingPath(t *testing.T) {
	s := testServer(t)
	input := ClassPatternsInput{Paths: []string{filepath.Join(t.TempDir(), "missing")}}

	result, _, err := s.handleAnalyzeClassPatterns(context.Background(), nil, input)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("missing path should be a tool error")
	}
}

func TestHandleAnalyzeClassSource(t *testing.T) {
	s := testServer(t)

	input := ClassSourceInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Content:      `<div class="flex gap-2"></div><div class="gap-2 flex"></div>`,
		Filename:     "card.svelte",
	}
	result, _, err := s.handleAnalyzeClassSource(context.Background(), nil, input)
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("tool error: %s", text)
	}

	var report classes.Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(report.Patterns) != 1 || report.Patterns[0].Occurrences != 2 {
		t.Errorf("patterns = %+v, want one pattern seen twice", report.Patterns)
	}
}

func TestHandleAnalyzeClassSourceRequiresFilename(t *testing.T) {
	s := testServer(t)
	result, _, _ := s.handleAnalyzeClassSource(context.Background(), nil, ClassSourceInput{Content: "x"})
	if !result.IsError {
		t.Error("missing filename should be a tool error")
	}
}

func TestHandleAnalyzeClassSourceUnknownExtension(t *testing.T) {
	s := testServer(t)
	input := ClassSourceInput{
		AnalyzeInput: AnalyzeInput{Format: "json"},
		Content:      `class="flex"`,
		Filename:     "notes.txt",
	}
	result, _, _ := s.handleAnalyzeClassSource(context.Background(), nil, input)
	if result.IsError {
		t.Fatalf("unknown extension should not be an error: %s", resultText(t, result))
	}
	var report classes.Report
	if err := json.Unmarshal([]byte(resultText(t, result)), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Patterns) != 0 {
		t.Errorf("patterns = %v, want none", report.Patterns)
	}
}

func TestLoadPrompts(t *testing.T) {
	docs, err := loadPrompts()
	if err != nil {
		t.Fatalf("loadPrompts() error: %v", err)
	}
	names := map[string]*promptDoc{}
	for _, d := range docs {
		names[d.Name] = d
		if d.Description == "" {
			t.Errorf("%s has no description", d.Name)
		}
	}
	for _, want := range []string{"extract-components", "review-markup"} {
		if names[want] == nil {
			t.Errorf("prompt %s not embedded", want)
		}
	}

	text, err := names["extract-components"].Render(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "`.`") || !strings.Contains(text, "likelihood under 40") {
		t.Errorf("defaults not applied: %s", text)
	}
	if strings.HasPrefix(text, "---") {
		t.Error("frontmatter leaked into the body")
	}
}

func TestPromptHandler(t *testing.T) {
	doc, err := parsePrompt("review", []byte("---\ndescription: desc\narguments:\n  - name: filename\n    default: a.html\n---\nReview {{.filename}}\n"))
	if err != nil {
		t.Fatal(err)
	}

	req := &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Arguments: map[string]string{"filename": "card.vue"}}}
	result, err := doc.handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Description != "desc" || len(result.Messages) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if text := result.Messages[0].Content.(*mcp.TextContent).Text; text != "Review card.vue\n" {
		t.Errorf("message = %q", text)
	}

	result, err = doc.handle(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if text := result.Messages[0].Content.(*mcp.TextContent).Text; text != "Review a.html\n" {
		t.Errorf("default message = %q", text)
	}

	p := doc.mcpPrompt()
	if len(p.Arguments) != 1 || p.Arguments[0].Name != "filename" {
		t.Errorf("arguments = %+v", p.Arguments)
	}
}

func TestParsePromptWithoutFrontmatter(t *testing.T) {
	doc, err := parsePrompt("plain", []byte("plain prompt"))
	if err != nil {
		t.Fatal(err)
	}
	text, err := doc.Render(nil)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Description != "" || text != "plain prompt" {
		t.Errorf("parsePrompt() = %q, %q", doc.Description, text)
	}
}

func TestParsePromptErrors(t *testing.T) {
	if _, err := parsePrompt("bad", []byte("---\ndescription: [unclosed\n---\nbody")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := parsePrompt("bad", []byte("{{.path")); err == nil {
		t.Error("expected template error")
	}
	doc, err := parsePrompt("unknown", []byte("{{.missing}}"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Render(nil); err == nil {
		t.Error("expected error for an undeclared argument")
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Name != "io.github.panbanda/clasp" || m.Version != "1.2.3" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Packages) != 1 || m.Packages[0].Identifier != "ghcr.io/panbanda/clasp:1.2.3" {
		t.Fatalf("packages = %+v", m.Packages)
	}
	pkg := m.Packages[0]
	if pkg.Transport.Type != "stdio" || len(pkg.PackageArguments) != 1 || pkg.PackageArguments[0].Value != "mcp" {
		t.Errorf("package = %+v", pkg)
	}
	if len(pkg.EnvironmentVariables) != 1 || pkg.EnvironmentVariables[0].Name != "CLASP_CONFIG" {
		t.Errorf("environment = %+v", pkg.EnvironmentVariables)
	}

	data, _ = GenerateManifest("")
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Error("empty version should default to 0.0.0")
	}
}
