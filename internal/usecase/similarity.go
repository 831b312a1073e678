package usecase

import (
	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityRatio returns the Ratcliff/Obershelp ratio of two strings in [0,1],
// compared code point by code point. The ratio is 1 only for equal strings.
//
// The matcher's longest-block search can yield slightly different ratios
// depending on argument order, so the larger of both directions is used.
func SimilarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	left, right := splitRunes(a), splitRunes(b)
	forward := difflib.NewMatcher(left, right).Ratio()
	backward := difflib.NewMatcher(right, left).Ratio()
	return max(forward, backward)
}

// splitRunes turns a string into one element per code point
func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
