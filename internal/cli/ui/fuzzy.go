package ui

import (
	"sort"
	"strings"
)

// maxSuggestions caps how many "did you mean" names are offered.
const maxSuggestions = 3

// SuggestNames returns up to three candidates close to a mistyped resource, kind or template
// name, nearest first. Matching ignores case and the name itself is never suggested. The
// allowed edit distance grows with the name: 1 up to four characters, 2 up to six, then 3.
func SuggestNames(name string, candidates []string) []string {
	limit := 3
	switch n := len([]rune(name)); {
	case n <= 4:
		limit = 1
	case n <= 6:
		limit = 2
	}

	type match struct {
		name string
		dist int
	}
	target := strings.ToLower(name)
	var matches []match
	for _, c := range candidates {
		if strings.EqualFold(c, name) {
			continue
		}
		if d := editDistance(target, strings.ToLower(c)); d <= limit {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })

	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.name)
	}
	return out
}

// editDistance is the Levenshtein distance between a and b counted in runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := prev[j-1]
			if ra[i-1] != rb[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
