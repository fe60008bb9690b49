// Package classes finds repeated utility-class combinations in templates,
// groups near-duplicates into clusters and scores each cluster by how likely
// it is to be worth extracting into a shared abstraction.
package classes

import (
	"slices"
	"strings"
)

// Tokenize splits a class attribute value on runs of whitespace.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(classString string) []string {
	return strings.Fields(classString)
}

// Canonicalize returns the deduplicated, sorted form of a class string joined
// by single spaces. Two strings holding the same set of classes canonicalize
// to the same value.
func Canonicalize(classString string) string {
	return strings.Join(CanonicalizeTokens(Tokenize(classString)), " ")
}

// CanonicalizeTokens deduplicates and sorts tokens by byte order.
// The input slice is not modified.
func CanonicalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Jaccard returns |A∩B| / |A∪B| over the whitespace-separated classes of a and b.
// Two empty inputs are identical (1.0); one empty input against a non-empty one is 0.
func Jaccard(a, b string) float64 {
	return JaccardTokens(Tokenize(a), Tokenize(b))
}

// JaccardTokens is Jaccard over token slices. Duplicates are ignored.
func JaccardTokens(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
