// Package filter provides pure filter functions for candidate items.
// All functions are simple: []CandidateItem in, []CandidateItem out. No side effects.
package filter

import (
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

// fingerprint identifies an item by content, independent of its id.
// Sources surface the same post under different ids across channels.
type fingerprint struct {
	title string
	body  string
}

// Dedup removes items whose title and body both match an earlier item.
// First occurrence wins and input order is preserved.
func Dedup(items []model.CandidateItem) []model.CandidateItem {
	if len(items) == 0 {
		return []model.CandidateItem{}
	}

	seen := make(map[fingerprint]bool, len(items))
	result := make([]model.CandidateItem, 0, len(items))

	for _, item := range items {
		key := fingerprint{title: item.Title, body: item.Body}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, item)
	}

	return result
}

// ByAge removes items created before now-maxAge.
// Used for channels whose source cannot filter by time window itself.
func ByAge(items []model.CandidateItem, maxAge time.Duration, now time.Time) []model.CandidateItem {
	if len(items) == 0 {
		return []model.CandidateItem{}
	}

	cutoff := now.Add(-maxAge)
	result := make([]model.CandidateItem, 0, len(items))

	for _, item := range items {
		if item.CreatedAt.After(cutoff) {
			result = append(result, item)
		}
	}

	return result
}
