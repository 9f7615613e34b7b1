package ui

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is the largest edit distance Suggest accepts
const DefaultMaxDistance = 3

// Suggest returns up to limit candidates within DefaultMaxDistance edits of
// target, closest first. Matching ignores case; ties keep candidate order.
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	lower := strings.ToLower(target)
	for _, c := range candidates {
		if d := Distance(lower, strings.ToLower(c)); d <= DefaultMaxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

// Distance is the Levenshtein distance between a and b, counted in bytes
func Distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
