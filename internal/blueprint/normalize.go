package blueprint

import (
	"math"
	"strconv"
	"strings"

	"github.com/abelbrown/goldmine/internal/model"
)

// Raw is a blueprint as the service returned it, before any checking.
type Raw map[string]any

// Defaults for fields the service left out or sent in the wrong shape.
const (
	DefaultSolutionName = "Untitled Solution"
	DefaultPitch        = "No pitch provided."
	DefaultMechanism    = "Not specified."
	DefaultMRR          = "$1K-$5K"
)

// DefaultTechStack is used when no stack is suggested.
var DefaultTechStack = []string{"Next.js", "PostgreSQL", "Stripe"}

// Aliases let snake_case and a few common synonyms through.
var (
	keysProblem       = []string{"problemStatement", "problem_statement", "problem"}
	keysSolutionName  = []string{"solutionName", "solution_name", "name"}
	keysSolutionPitch = []string{"solutionPitch", "solution_pitch", "pitch"}
	keysMechanism     = []string{"mechanism", "howItWorks", "how_it_works"}
	keysMarketSize    = []string{"marketSize", "market_size"}
	keysFeatures      = []string{"keyFeatures", "key_features", "features"}
	keysAudience      = []string{"targetAudience", "target_audience", "audience"}
	keysPricing       = []string{"pricingModel", "pricing_model", "pricing"}
	keysDifficulty    = []string{"difficulty"}
	keysRoadmap       = []string{"roadmap"}
	keysTechStack     = []string{"techStack", "tech_stack"}
	keysMRR           = []string{"estimatedMRR", "estimated_mrr", "mrr"}
	keysJustification = []string{"justification", "why"}
)

// Normalize turns a loose service reply into a complete Blueprint for c.
// Every required field ends up populated.
func Normalize(raw Raw, c model.ScoredCandidate) model.Blueprint {
	bp := model.Blueprint{
		ProblemStatement: stringOr(raw, keysProblem, c.Title),
		SolutionName:     stringOr(raw, keysSolutionName, DefaultSolutionName),
		SolutionPitch:    stringOr(raw, keysSolutionPitch, DefaultPitch),
		Mechanism:        stringOr(raw, keysMechanism, DefaultMechanism),
		MarketSize:       model.MarketMedium,
		KeyFeatures:      stringList(lookup(raw, keysFeatures)),
		TargetAudience:   stringOr(raw, keysAudience, ""),
		PricingModel:     stringOr(raw, keysPricing, ""),
		Difficulty:       difficulty(lookup(raw, keysDifficulty)),
		Roadmap:          roadmap(lookup(raw, keysRoadmap)),
		EstimatedMRR:     stringOr(raw, keysMRR, DefaultMRR),
		Justification:    stringOr(raw, keysJustification, justification(c)),
	}

	if s, ok := lookup(raw, keysMarketSize).(string); ok {
		if size, ok := model.ParseMarketSize(s); ok {
			bp.MarketSize = size
		}
	}

	bp.TechStack = stringList(lookup(raw, keysTechStack))
	if len(bp.TechStack) == 0 {
		bp.TechStack = append([]string(nil), DefaultTechStack...)
	}

	return bp
}

func lookup(raw Raw, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOr(raw Raw, keys []string, def string) string {
	if s, ok := lookup(raw, keys).(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return def
}

// stringList keeps the non-empty strings of a JSON array, in order.
func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// difficulty accepts a number or numeric string and clamps it to 1..5.
func difficulty(v any) *int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	d := int(math.Round(math.Min(5, math.Max(1, f))))
	return &d
}

// roadmap accepts {"mvp": phase, "growth": phase} or a two-element array.
// Anything else, or a phase without a name, drops the roadmap.
func roadmap(v any) *model.Roadmap {
	var mvp, growth any
	switch r := v.(type) {
	case map[string]any:
		mvp, growth = r["mvp"], r["growth"]
	case []any:
		if len(r) != 2 {
			return nil
		}
		mvp, growth = r[0], r[1]
	default:
		return nil
	}

	first, ok := phase(mvp)
	if !ok {
		return nil
	}
	second, ok := phase(growth)
	if !ok {
		return nil
	}
	return &model.Roadmap{MVP: first, Growth: second}
}

func phase(v any) (model.RoadmapPhase, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.RoadmapPhase{}, false
	}
	name, _ := m["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RoadmapPhase{}, false
	}
	timeline, _ := m["timeline"].(string)
	return model.RoadmapPhase{
		Name:     name,
		Features: stringList(m["features"]),
		Timeline: strings.TrimSpace(timeline),
	}, true
}
