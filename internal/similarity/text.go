package similarity

import (
	"strings"
	"unicode"
)

// Tokens splits s into lowercase alphanumeric tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TokenJaccard is the Jaccard index of the token sets of a and b.
func TokenJaccard(a, b string) float64 {
	return jaccard(Tokens(a), Tokens(b))
}

// NGrams returns the character n-grams of s after lowercasing. Strings shorter
// than n yield themselves.
func NGrams(s string, n int) []string {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) == 0 {
		return nil
	}
	if len(r) < n {
		return []string{string(r)}
	}
	grams := make([]string, 0, len(r)-n+1)
	for i := 0; i <= len(r)-n; i++ {
		grams = append(grams, string(r[i:i+n]))
	}
	return grams
}

// TrigramJaccard is the Jaccard index of the character trigram sets of a and b.
func TrigramJaccard(a, b string) float64 {
	return jaccard(NGrams(a, 3), NGrams(b, 3))
}

func jaccard(x, y []string) float64 {
	set1 := make(map[string]bool, len(x))
	set2 := make(map[string]bool, len(y))
	for _, g := range x {
		set1[g] = true
	}
	for _, g := range y {
		set2[g] = true
	}

	intersection := 0
	for g := range set1 {
		if set2[g] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// LevenshteinRatio is 1 - distance/maxLen over the lowercased runes of a and b.
func LevenshteinRatio(a, b string) float64 {
	r1 := []rune(strings.ToLower(a))
	r2 := []rune(strings.ToLower(b))
	maxLen := max(len(r1), len(r2))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(r1, r2))/float64(maxLen)
}

func levenshtein(r1, r2 []rune) int {
	row := make([]int, len(r2)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		prev := i
		for j := 1; j <= len(r2); j++ {
			var val int
			if r1[i-1] == r2[j-1] {
				val = row[j-1]
			} else {
				val = min(row[j-1]+1, prev+1, row[j]+1)
			}
			row[j-1] = prev
			prev = val
		}
		row[len(r2)] = prev
	}
	return row[len(r2)]
}
