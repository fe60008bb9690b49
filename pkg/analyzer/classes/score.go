package classes

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Weights control how variant count and frequency share contribute to the
// 0-100 likelihood scale.
type Weights struct {
	Variant   float64 `json:"variant"`
	Frequency float64 `json:"frequency"`
}

// DefaultWeights returns the standard 60/40 split.
func DefaultWeights() Weights {
	return Weights{Variant: 60, Frequency: 40}
}

// variantsToMax is how many variants saturate the variant component.
const variantsToMax = 4

// shareMultiplier maps a frequency share of 0.25 onto 100 points.
const shareMultiplier = 400

// Likelihood scores a cluster from its variant count and its share of total
// occurrences. A cluster needs about four variants to max the variant
// component and about a quarter of all occurrences to max the frequency one.
func Likelihood(variantCount, occurrences, total int, w Weights) int {
	variantScore := math.Min(w.Variant, float64(variantCount-1)*(w.Variant/variantsToMax))

	share := 0.0
	if total > 0 {
		share = float64(occurrences) / float64(total)
	}
	freqScore := math.Min(w.Frequency, math.Round(share*shareMultiplier))

	score := math.Round(variantScore + freqScore)
	return int(math.Max(0, math.Min(100, score)))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Score finalizes every cluster against the total occurrence count of the
// patterns that were clustered.
func Score(clusters []*Cluster, total int, w Weights) {
	for _, c := range clusters {
		c.finalize(total, w)
	}
}

// Rank drops clusters with fewer than minVariants members and orders the
// rest by likelihood, highest first. Equal scores keep clustering order.
func Rank(clusters []*Cluster, minVariants int) []*Cluster {
	out := make([]*Cluster, 0, len(clusters))
	for _, c := range clusters {
		if c.VariantCount >= minVariants {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likelihood > out[j].Likelihood
	})
	return out
}
