// Package ranking scores candidates and cuts the working set down between
// pipeline stages.
//
// The gold score mixes engagement, recency, content richness and an
// optional relevance multiplier into a single 0-100 value.
package ranking

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/abelbrown/goldmine/internal/model"
)

const (
	// RecencyHorizonHours is the age at which the recency weight bottoms out.
	RecencyHorizonHours = 168.0

	// MinRecency is the recency floor applied to items older than the horizon.
	MinRecency = 1.0

	// RichBodyLength is the body length (in characters) above which the
	// context bonus applies.
	RichBodyLength = 100

	// RichBodyBonus multiplies the base score of items with a rich body.
	RichBodyBonus = 1.2

	// MinMultiplier and MaxMultiplier bound the relevance multiplier.
	MinMultiplier = 0.5
	MaxMultiplier = 1.5

	// MaxScore is the ceiling of the gold score.
	MaxScore = 100.0
)

// Engagement is score*1.5 + comments*2.5.
func Engagement(item model.CandidateItem) float64 {
	return float64(item.EngagementScore)*1.5 + float64(item.CommentCount)*2.5
}

// Recency is max(1, 168 - ageHours). Future-dated items count as brand new.
func Recency(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return math.Max(MinRecency, RecencyHorizonHours-age)
}

// ClampMultiplier bounds m to [MinMultiplier, MaxMultiplier].
// NaN falls back to the neutral 1.0.
func ClampMultiplier(m float64) float64 {
	if math.IsNaN(m) {
		return 1.0
	}
	return math.Min(MaxMultiplier, math.Max(MinMultiplier, m))
}

// base is the unclamped, unrounded score before the relevance multiplier.
func base(item model.CandidateItem, now time.Time) float64 {
	b := Engagement(item) * Recency(item.CreatedAt, now) / 10
	if utf8.RuneCountInString(item.Body) > RichBodyLength {
		b *= RichBodyBonus
	}
	return b
}

func clampScore(s float64) float64 {
	return math.Min(MaxScore, math.Max(0, s))
}

// FirstPass is the heuristic score used to pick the shortlist.
// It stays a float so close scores keep their order.
func FirstPass(item model.CandidateItem, now time.Time) float64 {
	return clampScore(base(item, now))
}

// GoldScore is the final, rounded score with the relevance multiplier applied.
func GoldScore(item model.CandidateItem, now time.Time, multiplier float64) int {
	s := base(item, now) * ClampMultiplier(multiplier)
	return int(math.Round(clampScore(s)))
}

// Rescore recomputes c.GoldScore from its own fields.
// This is the only place GoldScore is written.
func Rescore(c *model.ScoredCandidate, now time.Time) {
	c.GoldScore = GoldScore(c.CandidateItem, now, c.RelevanceMultiplier)
}
