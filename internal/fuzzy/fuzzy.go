// Package fuzzy provides pure string-similarity scoring for title matching.
// All scores are on a 0-1 scale.
package fuzzy

import (
	"strings"
	"unicode"
)

// Ratio returns the whole-string edit similarity between a and b:
// 1 - distance/maxLen, where distance is the Levenshtein distance.
// Comparison is case-insensitive. Two empty strings score 1.0.
func Ratio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// TokenSetRatio returns the intersection-over-union of the lower-cased word
// sets of a and b. It is insensitive to word order and partial overlap:
// "testing patterns" vs "advanced testing patterns" scores 2/3.
func TokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Score returns the similarity between a keyword and a title: the higher of
// the whole-string edit ratio and the token-set ratio.
func Score(keyword, title string) float64 {
	r := Ratio(keyword, title)
	if ts := TokenSetRatio(keyword, title); ts > r {
		return ts
	}
	return r
}

// BestScore returns the maximum Score of any keyword against the title.
// Returns 0 for an empty keyword list.
func BestScore(keywords []string, title string) float64 {
	best := 0.0
	for _, kw := range keywords {
		if s := Score(kw, title); s > best {
			best = s
		}
	}
	return best
}

// tokenSet splits s into lower-cased word tokens, dropping punctuation.
func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// levenshtein calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one string
// into another. Operates on runes for proper Unicode handling.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	runesA := []rune(a)
	runesB := []rune(b)
	lenA := len(runesA)
	lenB := len(runesB)
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Two rows are enough for space efficiency.
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i
		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[lenB]
}
