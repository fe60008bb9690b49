package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/clasp/internal/output"
	"github.com/panbanda/clasp/internal/service/analysis"
	"github.com/panbanda/clasp/pkg/analyzer/classes"
	"github.com/panbanda/clasp/pkg/config"
	toon "github.com/toon-format/toon-go"
)

// AnalyzeInput is the shared input for the analysis tools.
type AnalyzeInput struct {
	Format              string  `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" jsonschema:"Minimum Jaccard similarity (0.0-1.0) to join a cluster. Default from config, 0.75."`
	MinOccurrences      int     `json:"min_occurrences,omitempty" jsonschema:"Drop patterns seen fewer times. Default from config, 2."`
	MinVariants         int     `json:"min_variants,omitempty" jsonschema:"Drop clusters with fewer member patterns. Default from config, 1."`
	Top                 int     `json:"top,omitempty" jsonschema:"Return only the top N clusters. Default all."`
}

// ClassPatternsInput selects files on disk.
type ClassPatternsInput struct {
	AnalyzeInput
	Paths  []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Ignore []string `json:"ignore,omitempty" jsonschema:"Additional ignore globs, e.g. **/stories/**."`
	Ref    string   `json:"ref,omitempty" jsonschema:"Analyze a git revision instead of the working tree."`
}

// ClassSourceInput carries one in-memory document.
type ClassSourceInput struct {
	AnalyzeInput
	Content  string `json:"content" jsonschema:"Template source to analyze."`
	Filename string `json:"filename" jsonschema:"File name used to pick extraction strategies, e.g. card.vue."`
}

func getPaths(input ClassPatternsInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	switch strings.ToLower(input.Format) {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func analyzerOptions(input AnalyzeInput) []classes.Option {
	var opts []classes.Option
	if input.SimilarityThreshold > 0 && input.SimilarityThreshold <= 1 {
		opts = append(opts, classes.WithSimilarityThreshold(input.SimilarityThreshold))
	}
	if input.MinOccurrences > 0 {
		opts = append(opts, classes.WithMinOccurrences(input.MinOccurrences))
	}
	if input.MinVariants > 0 {
		opts = append(opts, classes.WithMinVariants(input.MinVariants))
	}
	return opts
}

// trimmed returns a copy of r holding only the top n clusters.
func trimmed(r *classes.Report, n int) *classes.Report {
	if n <= 0 || n >= len(r.Clusters) {
		return r
	}
	out := *r
	out.Clusters = r.Top(n)
	return &out
}

func formatOutput(r *classes.Report, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		var sb strings.Builder
		if err := output.NewWriterFormatter(output.FormatMarkdown, &sb, false).Output(output.NewPatternReport(r, 0)); err != nil {
			return "", err
		}
		return sb.String(), nil
	default:
		out, err := toon.Marshal(r, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(r *classes.Report, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(r, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// toolConfig copies the server config for one call. Tools never print to
// the console or write report files.
func (s *Server) toolConfig(ignore []string) *config.Config {
	cfg := *s.config
	cfg.Output.Console.Enabled = false
	cfg.Output.JSON.Enabled = false
	if len(ignore) > 0 {
		cfg.Scan.IgnoreGlobs = slices.Concat(s.config.Scan.IgnoreGlobs, ignore)
	}
	return &cfg
}

func (s *Server) handleAnalyzeClassPatterns(ctx context.Context, req *mcp.CallToolRequest, input ClassPatternsInput) (*mcp.CallToolResult, any, error) {
	svc := analysis.New(
		analysis.WithConfig(s.toolConfig(input.Ignore)),
		analysis.WithOutput(io.Discard, io.Discard),
	)

	report, err := svc.Run(ctx, analysis.Options{
		Paths:           getPaths(input),
		Ref:             input.Ref,
		AnalyzerOptions: analyzerOptions(input.AnalyzeInput),
	})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(trimmed(report, input.Top), getFormat(input.AnalyzeInput))
}

func (s *Server) handleAnalyzeClassSource(ctx context.Context, req *mcp.CallToolRequest, input ClassSourceInput) (*mcp.CallToolResult, any, error) {
	if input.Filename == "" {
		return toolError("filename is required")
	}

	opts := append([]classes.Option{classes.WithConfig(s.config)}, analyzerOptions(input.AnalyzeInput)...)
	a, err := classes.New(opts...)
	if err != nil {
		return toolError(err.Error())
	}

	report := a.AnalyzeSource(input.Content, input.Filename)
	return toolResult(trimmed(report, input.Top), getFormat(input.AnalyzeInput))
}
