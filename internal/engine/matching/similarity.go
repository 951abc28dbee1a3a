// internal/engine/matching/similarity.go
package matching

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// SimilarityFunc scores two normalized descriptions in [0, 1]. It must be
// symmetric: f(a, b) == f(b, a).
type SimilarityFunc func(a, b string) float64

const (
	weightOverlap = 0.60
	weightLeading = 0.25
	weightEdit    = 0.15
)

// TokenSimilarity blends token overlap, leading-token agreement and
// normalized edit distance.
func TokenSimilarity(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if a == b {
		return 1
	}

	setA, setB := toSet(ta), toSet(tb)
	return weightOverlap*jaccard(setA, setB) +
		weightLeading*leading(ta, tb, setA, setB) +
		weightEdit*EditSimilarity(a, b)
}

// EditSimilarity is 1 - levenshtein/maxLen.
func EditSimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func leading(ta, tb []string, setA, setB map[string]struct{}) float64 {
	if ta[0] == tb[0] {
		return 1
	}
	_, aInB := setB[ta[0]]
	_, bInA := setA[tb[0]]
	if aInB || bInA {
		return 0.5
	}
	return 0
}

func toSet(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}
