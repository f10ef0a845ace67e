// Package relevance narrows the shortlist to items that read like business
// opportunities.
//
// Classification never fails: when the quota guard refuses, the service
// errors, or the reply is unusable, every shortlisted item passes through
// with a neutral multiplier and the outcome is marked degraded.
package relevance

import (
	"context"

	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/quota"
	"github.com/abelbrown/goldmine/internal/ranking"
)

// Outcome is the result of classifying a shortlist.
type Outcome struct {
	Items    []model.ScoredCandidate
	Degraded bool
	Reason   string
}

// Classifier gates a Service behind a quota guard.
type Classifier struct {
	svc   Service
	guard quota.Checker
}

// NewClassifier creates a classifier. A nil guard means unlimited.
func NewClassifier(svc Service, guard quota.Checker) *Classifier {
	if guard == nil {
		guard = quota.Unlimited{}
	}
	return &Classifier{svc: svc, guard: guard}
}

// Classify returns the opportunities in shortlist, in shortlist order,
// annotated with their relevance multiplier and intensity.
func (c *Classifier) Classify(ctx context.Context, shortlist []model.ScoredCandidate) Outcome {
	if len(shortlist) == 0 {
		return Outcome{Items: []model.ScoredCandidate{}}
	}

	if d := c.guard.CheckAllowed(); !d.Allowed {
		logging.Warn("Relevance classification skipped", "reason", "quota denied",
			"remaining_minute", d.RemainingPerMinute, "remaining_day", d.RemainingPerDay)
		return FailOpen(shortlist, brain.Reason(brain.ErrQuotaExceeded))
	}

	if c.svc == nil {
		return FailOpen(shortlist, brain.Reason(brain.ErrProviderUnavailable))
	}

	items := make([]model.CandidateItem, len(shortlist))
	for i, s := range shortlist {
		items[i] = s.CandidateItem
	}

	verdicts, err := c.svc.Classify(ctx, items)
	if err != nil {
		reason := brain.Reason(err)
		logging.Warn("Relevance classification failed, passing shortlist through", "reason", reason, "error", err)
		return FailOpen(shortlist, reason)
	}

	return Outcome{Items: Apply(shortlist, verdicts)}
}

// Apply joins verdicts to the shortlist by index. Out-of-range indices are
// ignored and the first verdict for an index wins.
func Apply(shortlist []model.ScoredCandidate, verdicts []Verdict) []model.ScoredCandidate {
	chosen := make([]*Verdict, len(shortlist))
	for i := range verdicts {
		v := &verdicts[i]
		if v.Index < 0 || v.Index >= len(shortlist) || chosen[v.Index] != nil {
			continue
		}
		chosen[v.Index] = v
	}

	out := make([]model.ScoredCandidate, 0, len(shortlist))
	for i, v := range chosen {
		if v == nil || !v.IsOpportunity {
			continue
		}
		c := shortlist[i]
		c.IsOpportunity = true
		c.RelevanceMultiplier = 1.0
		if v.RelevanceScore != nil {
			c.RelevanceMultiplier = ranking.ClampMultiplier(*v.RelevanceScore)
		}
		c.Intensity = v.Intensity
		out = append(out, c)
	}
	return out
}

// FailOpen marks every shortlisted item as an opportunity with a neutral
// multiplier.
func FailOpen(shortlist []model.ScoredCandidate, reason string) Outcome {
	out := make([]model.ScoredCandidate, len(shortlist))
	for i, c := range shortlist {
		c.IsOpportunity = true
		c.RelevanceMultiplier = 1.0
		out[i] = c
	}
	return Outcome{Items: out, Degraded: true, Reason: reason}
}
