package classes

import (
	"math"
	"sort"
)

// PatternStats counts one canonical class combination across all files.
type PatternStats struct {
	Pattern     string   `json:"pattern"`
	Occurrences int      `json:"occurrences"`
	Percent     float64  `json:"percent"`
	Variants    []string `json:"variants"`
	Files       []string `json:"files,omitempty"`
}

type patternEntry struct {
	stats    PatternStats
	variants map[string]struct{}
	files    map[string]struct{}
}

// Aggregator tallies raw class strings by canonical form. Insertion order is
// kept so that equal counts sort in first-seen order. It is not safe for
// concurrent use; results must be folded in a fixed order.
type Aggregator struct {
	index map[string]*patternEntry
	order []*patternEntry
	total int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]*patternEntry)}
}

// Add counts one raw class string found in file. Strings without any class
// token are ignored.
func (a *Aggregator) Add(raw, file string) {
	pattern := Canonicalize(raw)
	if pattern == "" {
		return
	}

	e, ok := a.index[pattern]
	if !ok {
		e = &patternEntry{
			stats:    PatternStats{Pattern: pattern},
			variants: make(map[string]struct{}),
			files:    make(map[string]struct{}),
		}
		a.index[pattern] = e
		a.order = append(a.order, e)
	}

	e.stats.Occurrences++
	a.total++

	if _, seen := e.variants[raw]; !seen {
		e.variants[raw] = struct{}{}
		e.stats.Variants = append(e.stats.Variants, raw)
	}
	if file != "" {
		if _, seen := e.files[file]; !seen {
			e.files[file] = struct{}{}
			e.stats.Files = append(e.stats.Files, file)
		}
	}
}

// AddExtraction counts every pattern of one file's extraction.
func (a *Aggregator) AddExtraction(file string, ex Extraction) {
	for _, raw := range ex.Patterns {
		a.Add(raw, file)
	}
}

// Unique returns the number of distinct canonical patterns seen.
func (a *Aggregator) Unique() int {
	return len(a.order)
}

// Total returns the number of class strings counted.
func (a *Aggregator) Total() int {
	return a.total
}

// Stats returns the patterns seen at least minOccurrences times, most
// frequent first. Percentages are relative to every counted class string.
func (a *Aggregator) Stats(minOccurrences int) []PatternStats {
	out := make([]PatternStats, 0, len(a.order))
	for _, e := range a.order {
		if e.stats.Occurrences < minOccurrences {
			continue
		}
		s := e.stats
		s.Variants = append([]string(nil), e.stats.Variants...)
		s.Files = append([]string(nil), e.stats.Files...)
		if a.total > 0 {
			s.Percent = round2(float64(s.Occurrences) / float64(a.total) * 100)
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Occurrences > out[j].Occurrences
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
