package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/clasp/pkg/analyzer/classes"
)

// PatternReport renders the top clusters of a class pattern report.
type PatternReport struct {
	Report *classes.Report
	// Top limits rendered clusters; non-positive renders all.
	Top int
}

// NewPatternReport wraps r for rendering.
func NewPatternReport(r *classes.Report, top int) *PatternReport {
	return &PatternReport{Report: r, Top: top}
}

// RenderData returns the full report; Top only limits the table.
func (p *PatternReport) RenderData() any {
	return p.Report
}

func (p *PatternReport) summary() string {
	r := p.Report
	return fmt.Sprintf("%d files, %d class lists, %d unique patterns, %d clusters (threshold %.2f)",
		r.TotalFiles, r.TotalClassLists, r.UniquePatterns, len(r.Clusters), r.SimilarityThreshold)
}

func (p *PatternReport) table(colored bool) *Table {
	clusters := p.Report.Top(p.Top)
	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		likelihood := strconv.Itoa(c.Likelihood) + "%"
		if colored {
			likelihood = LikelihoodColor(c.Likelihood, likelihood)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Occurrences),
			strconv.Itoa(c.VariantCount),
			likelihood,
			c.Representative,
		})
	}

	title := "Class Pattern Clusters"
	if len(clusters) < len(p.Report.Clusters) {
		title = fmt.Sprintf("Top %d of %d Class Pattern Clusters", len(clusters), len(p.Report.Clusters))
	}
	return &Table{
		Title: title,
		Columns: []Column{
			{Header: "Occurrences", Numeric: true},
			{Header: "Variants", Numeric: true},
			{Header: "Likelihood", Numeric: true},
			{Header: "Pattern"},
		},
		Rows: rows,
	}
}

func (p *PatternReport) RenderText(w io.Writer, colored bool) error {
	if len(p.Report.Clusters) == 0 {
		fmt.Fprintln(w, "No repeated class patterns found.")
		fmt.Fprintln(w, p.summary())
		return nil
	}
	if err := p.table(colored).RenderText(w, colored); err != nil {
		return err
	}
	fmt.Fprintln(w, p.summary())
	return nil
}

func (p *PatternReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Class Patterns\n\n%s\n\n", p.summary())
	if len(p.Report.Clusters) == 0 {
		fmt.Fprintln(w, "No repeated class patterns found.")
		return nil
	}

	t := p.table(false)
	for i, row := range t.Rows {
		row[3] = "`" + row[3] + "`"
		t.Rows[i] = row
	}
	if err := t.RenderMarkdown(w); err != nil {
		return err
	}

	for _, c := range p.Report.Top(p.Top) {
		if c.VariantCount < 2 {
			continue
		}
		fmt.Fprintf(w, "### `%s`\n\n", c.Representative)
		for _, m := range c.Members[1:] {
			fmt.Fprintf(w, "- `%s`\n", m)
		}
		if len(c.Files) > 0 {
			fmt.Fprintf(w, "\nFiles: %s\n", strings.Join(c.Files, ", "))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// LikelihoodColor colors text by how strong an extraction candidate is.
func LikelihoodColor(likelihood int, text string) string {
	switch {
	case likelihood >= 70:
		return color.RedString(text)
	case likelihood >= 40:
		return color.YellowString(text)
	default:
		return color.GreenString(text)
	}
}
