package steps

import "sort"

// Rank orders ideas by composite score, then doability, then generation
// order. The input slice is not modified.
func Rank(ideas []ScoredIdea) []ScoredIdea {
	out := append([]ScoredIdea(nil), ideas...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Doability.DoabilityScore != b.Doability.DoabilityScore {
			return a.Doability.DoabilityScore > b.Doability.DoabilityScore
		}
		return a.SourceIndex < b.SourceIndex
	})
	return out
}
