package blueprint

import (
	"fmt"
	"strings"

	"github.com/abelbrown/goldmine/internal/model"
)

const systemPrompt = `You turn a social post describing a pain point into a short product blueprint.

Reply with one JSON object and nothing else:
{
  "problemStatement": "...",
  "solutionName": "...",
  "solutionPitch": "one sentence",
  "mechanism": "how it works",
  "marketSize": "Small" | "Medium" | "Large",
  "keyFeatures": ["...", "..."],
  "targetAudience": "...",
  "pricingModel": "...",
  "difficulty": 1-5,
  "roadmap": {"mvp": {"name": "...", "features": ["..."], "timeline": "..."},
              "growth": {"name": "...", "features": ["..."], "timeline": "..."}},
  "techStack": ["..."],
  "estimatedMRR": "...",
  "justification": "..."
}`

func buildPrompt(c model.ScoredCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "Channel: %s\n", c.Channel)
	fmt.Fprintf(&b, "Upvotes: %d, comments: %d, similar posts: %d\n", c.EngagementScore, c.CommentCount, c.SimilarCount)
	if c.Intensity != "" {
		fmt.Fprintf(&b, "Pain intensity: %s\n", c.Intensity)
	}
	if body := strings.TrimSpace(c.Body); body != "" {
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	return b.String()
}
