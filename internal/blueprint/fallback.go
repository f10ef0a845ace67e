package blueprint

import (
	"fmt"

	"github.com/abelbrown/goldmine/internal/model"
)

// FallbackSolutionName marks blueprints that were not generated.
const FallbackSolutionName = "Opportunity Under Review"

// Fallback builds a blueprint from the candidate alone.
func Fallback(c model.ScoredCandidate) model.Blueprint {
	return model.Blueprint{
		ProblemStatement: c.Title,
		SolutionName:     FallbackSolutionName,
		SolutionPitch:    "Detailed analysis is unavailable right now. Read the source discussion to size this up.",
		Mechanism:        DefaultMechanism,
		MarketSize:       model.MarketMedium,
		KeyFeatures:      []string{},
		TechStack:        append([]string(nil), DefaultTechStack...),
		EstimatedMRR:     DefaultMRR,
		Justification:    justification(c),
	}
}

func justification(c model.ScoredCandidate) string {
	s := fmt.Sprintf("%d upvotes and %d comments", c.EngagementScore, c.CommentCount)
	if c.SimilarCount > 1 {
		s += fmt.Sprintf(" across %d similar posts", c.SimilarCount)
	}
	if c.Channel != "" {
		s += " in " + c.Channel
	}
	return s + fmt.Sprintf(" (gold score %d).", c.GoldScore)
}
