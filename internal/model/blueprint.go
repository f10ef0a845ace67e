package model

import "strings"

// MarketSize is the coarse addressable-market estimate of a blueprint.
type MarketSize string

const (
	MarketSmall  MarketSize = "Small"
	MarketMedium MarketSize = "Medium"
	MarketLarge  MarketSize = "Large"
)

// ParseMarketSize matches s case-insensitively against the three sizes.
func ParseMarketSize(s string) (MarketSize, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small":
		return MarketSmall, true
	case "medium":
		return MarketMedium, true
	case "large":
		return MarketLarge, true
	}
	return "", false
}

// RoadmapPhase is one step of a two-phase build plan.
type RoadmapPhase struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
	Timeline string   `json:"timeline"`
}

// Roadmap is the optional build plan attached to a blueprint.
type Roadmap struct {
	MVP    RoadmapPhase `json:"mvp"`
	Growth RoadmapPhase `json:"growth"`
}

// Blueprint is the structured business analysis of one finalist.
//
// Difficulty is nil when the generator did not return one; presentation
// layers derive their own estimate in that case.
type Blueprint struct {
	ProblemStatement string     `json:"problem_statement"`
	SolutionName     string     `json:"solution_name"`
	SolutionPitch    string     `json:"solution_pitch"`
	Mechanism        string     `json:"mechanism"`
	MarketSize       MarketSize `json:"market_size"`
	KeyFeatures      []string   `json:"key_features"`
	TargetAudience   string     `json:"target_audience,omitempty"`
	PricingModel     string     `json:"pricing_model,omitempty"`
	Difficulty       *int       `json:"difficulty,omitempty"`
	Roadmap          *Roadmap   `json:"roadmap,omitempty"`
	TechStack        []string   `json:"tech_stack"`
	EstimatedMRR     string     `json:"estimated_mrr"`
	Justification    string     `json:"justification"`
}
