package ranking

import (
	"sort"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

const (
	// ShortlistSize is how many candidates go to relevance classification.
	ShortlistSize = 20

	// FinalistSize is how many candidates get a blueprint.
	FinalistSize = model.MaxFindings
)

// TopN returns the n highest-scoring candidates, highest first.
// Ties keep fetch order. Does not modify the input slice.
func TopN(cands []model.ScoredCandidate, n int, score func(model.ScoredCandidate) float64) []model.ScoredCandidate {
	type scored struct {
		c     model.ScoredCandidate
		score float64
	}

	ranked := make([]scored, len(cands))
	for i, c := range cands {
		ranked[i] = scored{c: c, score: score(c)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].c.FetchOrder < ranked[j].c.FetchOrder
	})

	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}

	result := make([]model.ScoredCandidate, n)
	for i := 0; i < n; i++ {
		result[i] = ranked[i].c
	}
	return result
}

// Shortlist orders candidates by first-pass score and keeps the top n.
func Shortlist(cands []model.ScoredCandidate, n int, now time.Time) []model.ScoredCandidate {
	return TopN(cands, n, func(c model.ScoredCandidate) float64 {
		return FirstPass(c.CandidateItem, now)
	})
}

// Finalists rescores candidates with their relevance multipliers and keeps
// the top n by the final gold score.
func Finalists(cands []model.ScoredCandidate, n int, now time.Time) []model.ScoredCandidate {
	rescored := make([]model.ScoredCandidate, len(cands))
	for i, c := range cands {
		Rescore(&c, now)
		rescored[i] = c
	}
	return TopN(rescored, n, func(c model.ScoredCandidate) float64 {
		return float64(c.GoldScore)
	})
}
