package classes

import "time"

// Report is the result of one analysis run.
type Report struct {
	// TotalClassLists is the sum of occurrences over retained patterns.
	TotalClassLists int `json:"total_class_lists"`
	// UniquePatterns counts distinct canonical patterns before the
	// min-occurrence filter.
	UniquePatterns int `json:"unique_patterns"`
	TotalFiles     int `json:"total_files"`
	// TotalPatterns mirrors TotalClassLists.
	TotalPatterns       int            `json:"total_patterns"`
	FilesSkipped        int            `json:"files_skipped"`
	SimilarityThreshold float64        `json:"similarity_threshold"`
	Strategies          map[string]int `json:"strategies"`
	Clusters            []*Cluster     `json:"clusters"`
	Patterns            []PatternStats `json:"patterns"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// Top returns at most n clusters from the head of the ranking.
// A non-positive n returns every cluster.
func (r *Report) Top(n int) []*Cluster {
	if n <= 0 || n >= len(r.Clusters) {
		return r.Clusters
	}
	return r.Clusters[:n]
}

func newReport(threshold float64, now time.Time) *Report {
	return &Report{
		SimilarityThreshold: threshold,
		Strategies:          make(map[string]int),
		Clusters:            []*Cluster{},
		Patterns:            []PatternStats{},
		GeneratedAt:         now,
	}
}

// assemble fills the report from the aggregated patterns. Clusters are built,
// scored against the retained occurrence total and ranked.
func (r *Report) assemble(agg *Aggregator, threshold float64, minOccurrences, minVariants int, w Weights) {
	stats := agg.Stats(minOccurrences)

	retained := 0
	for _, s := range stats {
		retained += s.Occurrences
	}

	clusters := BuildClusters(stats, threshold)
	Score(clusters, retained, w)

	r.TotalClassLists = retained
	r.TotalPatterns = retained
	r.UniquePatterns = agg.Unique()
	r.Patterns = stats
	r.Clusters = Rank(clusters, minVariants)
}
