// Package correlation links candidate posts that describe the same problem.
//
// Grouping is cheap and lexical: no embeddings, no LLM. It runs after the
// quick filter so the quadratic comparison only sees a trimmed set.
package correlation

import (
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/goldmine/internal/model"
)

const (
	// minTokenLen drops short words ("the", "for", "app") from title tokens.
	minTokenLen = 3

	// Threshold is the similarity above which two titles share a group.
	Threshold = 0.3
)

// tokenSet is a set of lowercase title words.
type tokenSet map[string]struct{}

// Tokens splits a title on whitespace, lowercases it, and keeps words
// longer than three characters (runes, not bytes).
func Tokens(title string) tokenSet {
	set := make(tokenSet)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(word) > minTokenLen {
			set[word] = struct{}{}
		}
	}
	return set
}

// Similarity is |a ∩ b| / max(|a|, |b|). Two empty sets score 0.
func Similarity(a, b tokenSet) float64 {
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	if larger == 0 {
		return 0
	}

	small, big := a, b
	if len(small) > len(big) {
		small, big = big, small
	}
	shared := 0
	for tok := range small {
		if _, ok := big[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(larger)
}

// GroupSizes returns, for each item, the size of the group it was placed in.
// The result is aligned with items.
//
// Each unassigned item becomes an anchor and claims every later unassigned
// item whose title is similar to the anchor's. Membership goes only through
// the anchor: two members that match each other but not the anchor are not
// pulled together.
func GroupSizes(items []model.CandidateItem) []int {
	sizes := make([]int, len(items))
	if len(items) == 0 {
		return sizes
	}

	tokens := make([]tokenSet, len(items))
	for i, item := range items {
		tokens[i] = Tokens(item.Title)
	}

	assigned := make([]bool, len(items))
	for i := range items {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []int{i}

		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			if Similarity(tokens[i], tokens[j]) > Threshold {
				assigned[j] = true
				members = append(members, j)
			}
		}

		for _, m := range members {
			sizes[m] = len(members)
		}
	}

	return sizes
}

// Group maps item id to its similar-items count.
func Group(items []model.CandidateItem) map[string]int {
	sizes := GroupSizes(items)
	counts := make(map[string]int, len(items))
	for i, item := range items {
		counts[item.ID] = sizes[i]
	}
	return counts
}
