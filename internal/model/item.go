// Package model defines the types that flow through the opportunity pipeline.
//
// Items are created by a fetcher, scored and ranked by the pipeline, and
// handed back to callers inside an AnalysisResult. Nothing in this package
// performs I/O.
package model

import "time"

// CandidateItem is a raw post returned by a source channel.
// Immutable once fetched.
type CandidateItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body,omitempty"`
	EngagementScore int       `json:"engagement_score"`
	CommentCount    int       `json:"comment_count"`
	CreatedAt       time.Time `json:"created_at"`
	Channel         string    `json:"channel"`
	Permalink       string    `json:"permalink"`
}

// ScoredCandidate is a CandidateItem plus the fields the pipeline computes.
//
// GoldScore is written only by the ranking package; SimilarCount is always
// at least 1 once grouping has run.
type ScoredCandidate struct {
	CandidateItem

	GoldScore           int     `json:"gold_score"`
	SimilarCount        int     `json:"similar_count"`
	RelevanceMultiplier float64 `json:"relevance_multiplier"`
	IsOpportunity       bool    `json:"is_opportunity"`
	Intensity           string  `json:"intensity,omitempty"` // high|medium|low, informational

	// FetchOrder is the item's position in the deduplicated fetch batch.
	// Ranking ties are broken by it.
	FetchOrder int `json:"-"`
}

// NewScoredCandidate wraps an item with neutral pipeline defaults.
func NewScoredCandidate(item CandidateItem, fetchOrder int) ScoredCandidate {
	return ScoredCandidate{
		CandidateItem:       item,
		SimilarCount:        1,
		RelevanceMultiplier: 1.0,
		FetchOrder:          fetchOrder,
	}
}
