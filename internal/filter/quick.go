package filter

import (
	"regexp"

	"github.com/abelbrown/goldmine/internal/model"
)

// Intent tags the kind of demand a quick-filter pattern recognises.
type Intent string

const (
	IntentNeed        Intent = "need"
	IntentWish        Intent = "wish"
	IntentFrustration Intent = "frustration"
	IntentToolSeeking Intent = "tool_seeking"
	IntentHowTo       Intent = "how_to"
	IntentComparison  Intent = "comparison"
)

// Pattern is one row of the quick-filter table.
type Pattern struct {
	Intent Intent
	re     *regexp.Regexp
}

// Match reports whether the pattern matches text.
func (p Pattern) Match(text string) bool {
	return p.re.MatchString(text)
}

func pattern(intent Intent, expr string) Pattern {
	return Pattern{Intent: intent, re: regexp.MustCompile(`(?i)` + expr)}
}

// Patterns is evaluated in order; the first match wins.
// High recall on purpose: this only trims volume ahead of grouping and
// classification, it does not make the final call.
var Patterns = []Pattern{
	pattern(IntentNeed, `\bneed(?:s|ed)?\s+(?:a|an|some)\s+(?:\w+\s+)?(?:tool|app|way|service|platform|software|solution|system)\b`),
	pattern(IntentNeed, `\blooking\s+for\s+(?:a|an|some)\s+(?:\w+\s+)?(?:tool|app|service|solution|software|platform)\b`),
	pattern(IntentNeed, `\bwould\s+(?:happily\s+)?pay\s+for\b`),

	pattern(IntentWish, `\bwish\s+(?:that|when|because|there|someone|i\s+could|it\s+would)\b`),
	pattern(IntentWish, `\bif\s+only\s+there\s+(?:was|were)\b`),

	pattern(IntentFrustration, `\bproblem\s+with\b`),
	pattern(IntentFrustration, `\b(?:frustrat|annoy)\w*`),
	pattern(IntentFrustration, `\bstruggl\w*\s+(?:with|to)\b`),
	pattern(IntentFrustration, `\b(?:sick|tired)\s+of\b`),
	pattern(IntentFrustration, `\bpain\s+point`),
	pattern(IntentFrustration, `\bhate\s+(?:how|that|when|having)\b`),

	pattern(IntentToolSeeking, `\bis\s+there\s+(?:a|an|any)\s+(?:\w+\s+)?(?:tool|app|way|service|software|website|platform|plugin)\b`),
	pattern(IntentToolSeeking, `\b(?:does\s+)?anyone\s+know\s+(?:of\s+)?(?:a|an|any)\b`),
	pattern(IntentToolSeeking, `\brecommend(?:ation)?s?\s+for\b`),

	pattern(IntentHowTo, `\bhow\s+(?:do|can|should|would)\s+(?:i|we|you)\s+(?:track|manage|automate|find|organi[sz]e|handle|keep\s+track|streamline)\b`),

	pattern(IntentComparison, `\balternatives?\s+to\b`),
	pattern(IntentComparison, `\b(?:cheaper|better)\s+(?:than|alternative|option)\b`),
	pattern(IntentComparison, `\bworth\s+(?:paying|the\s+money)\b`),
}

// MatchIntent returns the intent of the first pattern matching the item's
// title and body.
func MatchIntent(item model.CandidateItem) (Intent, bool) {
	text := item.Title + " " + item.Body
	for _, p := range Patterns {
		if p.Match(text) {
			return p.Intent, true
		}
	}
	return "", false
}

// Quick keeps items matching at least one pattern. Order is preserved.
func Quick(items []model.CandidateItem) []model.CandidateItem {
	if len(items) == 0 {
		return []model.CandidateItem{}
	}

	result := make([]model.CandidateItem, 0, len(items))
	for _, item := range items {
		if _, ok := MatchIntent(item); ok {
			result = append(result, item)
		}
	}
	return result
}
