package util

import "github.com/sahilm/fuzzy"

// FuzzyRank returns the indexes of candidates matching query, best match
// first, capped at n when n > 0. An empty query keeps every candidate in order.
func FuzzyRank(query string, candidates []string, n int) []int {
	var out []int
	if query == "" {
		out = make([]int, len(candidates))
		for i := range candidates {
			out[i] = i
		}
	} else {
		matches := fuzzy.Find(query, candidates)
		out = make([]int, len(matches))
		for i, m := range matches {
			out[i] = m.Index
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
