// Package output renders analysis results for terminals, files and tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// Renderable defines data that can render itself in multiple formats.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the value serialized for JSON and TOON.
	RenderData() any
}

// Formatter writes results and status lines in one format.
type Formatter struct {
	format  Format
	writer  io.Writer
	colored bool
}

// NewWriterFormatter creates a formatter writing to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// Output writes data in the configured format. Values that are not
// Renderable are serialized: text and markdown fall back to JSON.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	if !ok {
		return f.encode(data, f.format == FormatMarkdown)
	}

	switch f.format {
	case FormatJSON, FormatTOON:
		return f.encode(r.RenderData(), false)
	case FormatMarkdown:
		if !f.colored {
			return r.RenderMarkdown(f.writer)
		}
		var md strings.Builder
		if err := r.RenderMarkdown(&md); err != nil {
			return err
		}
		_, err := io.WriteString(f.writer, styleMarkdown(md.String()))
		return err
	default:
		return r.RenderText(f.writer, f.colored)
	}
}

// encode serializes data as TOON for the TOON format and as indented JSON
// otherwise, optionally inside a json code fence.
func (f *Formatter) encode(data any, fenced bool) error {
	if f.format == FormatTOON {
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(f.writer, "%s\n", out)
		return err
	}

	if fenced {
		fmt.Fprintln(f.writer, "```json")
	}
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}
	if fenced {
		fmt.Fprintln(f.writer, "```")
	}
	return nil
}

// styleMarkdown renders md for a terminal, returning it unchanged when the
// renderer fails.
func styleMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Column describes one table column. Numeric columns are right aligned.
type Column struct {
	Header  string
	Numeric bool
}

// Table is a titled grid of pre-formatted cells.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

func (t *Table) headers() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Header
	}
	return h
}

// RenderText draws the table without borders, title underlined.
func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		title := t.Title
		if colored {
			title = color.New(color.Bold).Sprint(title)
		}
		fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(t.Title)))
	}

	align := make([]tw.Align, len(t.Columns))
	for i, c := range t.Columns {
		align[i] = tw.AlignLeft
		if c.Numeric {
			align[i] = tw.AlignRight
		}
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{PerColumn: align},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: align},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)
	table.Header(t.headers())
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// RenderMarkdown writes a GitHub-flavored markdown table.
func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	seps := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		seps[i] = "---"
		if c.Numeric {
			seps[i] = "---:"
		}
	}
	writeRow := func(cells []string) {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	writeRow(t.headers())
	writeRow(seps)
	for _, row := range t.Rows {
		writeRow(row)
	}
	fmt.Fprintln(w)
	return nil
}

// Success prints a status line in green.
func (f *Formatter) Success(format string, args ...any) {
	f.message(color.FgGreen, "", format, args...)
}

// Warning prints a status line in yellow, or prefixed without color.
func (f *Formatter) Warning(format string, args ...any) {
	f.message(color.FgYellow, "WARNING: ", format, args...)
}

// Error prints a status line in red, or prefixed without color.
func (f *Formatter) Error(format string, args ...any) {
	f.message(color.FgRed, "ERROR: ", format, args...)
}

func (f *Formatter) message(attr color.Attribute, prefix, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if f.colored {
		color.New(attr).Fprintln(f.writer, line)
		return
	}
	fmt.Fprintln(f.writer, prefix+line)
}
