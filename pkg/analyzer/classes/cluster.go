package classes

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Cluster groups canonical patterns whose classes overlap with a shared
// representative. The representative is the pattern that seeded the cluster.
type Cluster struct {
	Representative    string   `json:"representative"`
	Members           []string `json:"members"`
	Occurrences       int      `json:"occurrences"`
	VariantCount      int      `json:"variant_count"`
	AverageSimilarity float64  `json:"average_similarity"`
	Likelihood        int      `json:"likelihood"`
	Files             []string `json:"files,omitempty"`

	// Token sets, parallel to Members; index 0 is the representative.
	sets  []*roaring.Bitmap
	files map[string]struct{}
}

// tokenInterner assigns dense ids to class tokens so patterns can be held
// as bitmaps.
type tokenInterner struct {
	ids map[string]uint32
}

func newTokenInterner() *tokenInterner {
	return &tokenInterner{ids: make(map[string]uint32)}
}

func (t *tokenInterner) set(pattern string) *roaring.Bitmap {
	bm := roaring.New()
	for _, tok := range Tokenize(pattern) {
		id, ok := t.ids[tok]
		if !ok {
			id = uint32(len(t.ids))
			t.ids[tok] = id
		}
		bm.Add(id)
	}
	return bm
}

// setJaccard matches Jaccard: two empty sets are identical.
func setJaccard(a, b *roaring.Bitmap) float64 {
	union := a.OrCardinality(b)
	if union == 0 {
		return 1.0
	}
	return float64(a.AndCardinality(b)) / float64(union)
}

// BuildClusters assigns each pattern, in the given order, to the first
// existing cluster whose representative is at least threshold similar, or
// seeds a new cluster. The result depends on input order; callers pass
// Aggregator.Stats output, which is deterministic.
func BuildClusters(stats []PatternStats, threshold float64) []*Cluster {
	interner := newTokenInterner()
	var clusters []*Cluster

	for _, s := range stats {
		set := interner.set(s.Pattern)

		var target *Cluster
		for _, c := range clusters {
			if setJaccard(set, c.sets[0]) >= threshold {
				target = c
				break
			}
		}

		if target == nil {
			target = &Cluster{
				Representative: s.Pattern,
				files:          make(map[string]struct{}),
			}
			clusters = append(clusters, target)
		}
		target.Members = append(target.Members, s.Pattern)
		target.sets = append(target.sets, set)
		target.Occurrences += s.Occurrences
		for _, f := range s.Files {
			target.files[f] = struct{}{}
		}
	}
	return clusters
}

// finalize fills in the derived fields once all patterns are assigned.
func (c *Cluster) finalize(total int, w Weights) {
	c.VariantCount = len(c.Members)

	sims := make([]float64, len(c.sets))
	for i, set := range c.sets {
		sims[i] = setJaccard(set, c.sets[0])
	}
	c.AverageSimilarity = mean(sims)
	c.Likelihood = Likelihood(c.VariantCount, c.Occurrences, total, w)

	if len(c.files) > 0 {
		c.Files = make([]string, 0, len(c.files))
		for f := range c.files {
			c.Files = append(c.Files, f)
		}
		slices.Sort(c.Files)
	}
}
