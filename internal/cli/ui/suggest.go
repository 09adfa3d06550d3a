package ui

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is the largest edit distance still offered as a
// suggestion.
const DefaultMaxDistance = 3

// Suggest returns the candidates within maxDistance edits of target,
// closest first. Matching ignores case. A non-positive maxDistance uses
// DefaultMaxDistance.
func Suggest(target string, candidates []string, maxDistance int) []string {
	if target == "" || len(candidates) == 0 {
		return nil
	}
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	type match struct {
		value    string
		distance int
	}
	var matches []match
	lower := strings.ToLower(target)
	for _, c := range candidates {
		d := EditDistance(lower, strings.ToLower(c))
		if d <= maxDistance {
			matches = append(matches, match{c, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

// EditDistance is the Levenshtein distance between a and b, counted in
// runes.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
