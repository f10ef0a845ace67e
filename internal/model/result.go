package model

import "time"

// MaxFindings caps the number of findings in an AnalysisResult.
const MaxFindings = 10

// Finding is one ranked entry of an analysis.
type Finding struct {
	Rank                int       `json:"rank"`
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Channel             string    `json:"channel"`
	Permalink           string    `json:"permalink"`
	EngagementScore     int       `json:"engagement_score"`
	CommentCount        int       `json:"comment_count"`
	CreatedAt           time.Time `json:"created_at"`
	GoldScore           int       `json:"gold_score"`
	SimilarCount        int       `json:"similar_count"`
	RelevanceMultiplier float64   `json:"relevance_multiplier"`
	Intensity           string    `json:"intensity,omitempty"`
	Blueprint           Blueprint `json:"blueprint"`
}

// NewFinding copies the presentation subset of c next to its blueprint.
func NewFinding(rank int, c ScoredCandidate, bp Blueprint) Finding {
	return Finding{
		Rank:                rank,
		ID:                  c.ID,
		Title:               c.Title,
		Channel:             c.Channel,
		Permalink:           c.Permalink,
		EngagementScore:     c.EngagementScore,
		CommentCount:        c.CommentCount,
		CreatedAt:           c.CreatedAt,
		GoldScore:           c.GoldScore,
		SimilarCount:        c.SimilarCount,
		RelevanceMultiplier: c.RelevanceMultiplier,
		Intensity:           c.Intensity,
		Blueprint:           bp,
	}
}

// AnalysisResult is the output of one pipeline run.
//
// Degraded lists the stages that ran on their fallback path. It is
// informational; a degraded result is still a complete result.
type AnalysisResult struct {
	ID              string    `json:"id"`
	Topic           string    `json:"topic"`
	Window          Window    `json:"window"`
	ScannedAt       time.Time `json:"scanned_at"`
	TotalCandidates int       `json:"total_candidates"`
	Findings        []Finding `json:"findings"`
	Degraded        []string  `json:"degraded,omitempty"`
}
