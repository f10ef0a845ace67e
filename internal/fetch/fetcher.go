// Package fetch retrieves candidate posts from source channels.
//
// A channel is either a subreddit ("r/saas" or just "saas") fetched through
// Reddit's public JSON listing, or an RSS/Atom feed ("feed:https://...")
// parsed with gofeed. Router picks the right one; Multi fans out over many
// channels and never lets one bad channel fail the batch.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

// ErrSourceUnavailable is returned when a channel cannot be read.
var ErrSourceUnavailable = errors.New("fetch: source unavailable")

// DefaultUserAgent identifies the fetcher to upstream sites.
const DefaultUserAgent = "goldmine/1.0 (+https://github.com/abelbrown/goldmine)"

// Fetcher returns the candidate items of one channel for a window.
type Fetcher interface {
	Fetch(ctx context.Context, channel string, window model.Window) ([]model.CandidateItem, error)
}

// newClient returns an HTTP client with the given timeout (30s when zero).
func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
