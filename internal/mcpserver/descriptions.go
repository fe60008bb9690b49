package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeClassPatterns() string {
	return `Finds repeated combinations of CSS utility classes across template files and groups near-identical combinations into clusters ranked by how likely they are to be worth extracting into a shared component.

USE WHEN:
- Looking for copy-pasted Tailwind or utility class lists
- Planning component extraction in a frontend codebase
- Reviewing how consistently a design system is applied

INTERPRETING RESULTS:
- Each cluster has a representative pattern (the first pattern that seeded it) and member patterns whose token overlap with the representative meets the similarity threshold
- likelihood (0-100) combines variant count and share of all class lists
- likelihood >= 70: strong extraction candidate
- likelihood 40-69: worth a look, often a component with a few props
- likelihood < 40: incidental overlap
- A lower threshold (0.5) merges more aggressively than the default (0.75)
- total_files 0 means no file matched the scan globs; the empty report is still a valid result

METRICS RETURNED:
- clusters: representative, members, occurrences, variant_count, average_similarity, likelihood, files
- patterns: every retained canonical pattern with occurrences, percent and raw variants
- totals: total_class_lists, unique_patterns, total_files, files_skipped, strategies`
}

func describeClassSource() string {
	return `Runs the same class pattern analysis on one in-memory document instead of files on disk. The file name decides which extraction strategies apply (html, jsx, vue, svelte, angular).

USE WHEN:
- Checking a template before it is saved
- Explaining which class lists in one file overlap

INTERPRETING RESULTS:
- Same scale as analyze_class_patterns; frequency share is relative to this document only
- An unknown extension yields an empty report, not an error

METRICS RETURNED:
- clusters and patterns for the document, with the same fields as analyze_class_patterns`
}
