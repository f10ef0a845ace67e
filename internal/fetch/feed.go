package fetch

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/goldmine/internal/filter"
	"github.com/abelbrown/goldmine/internal/model"
)

// FeedPrefix marks a channel as an RSS/Atom feed URL.
const FeedPrefix = "feed:"

// FeedFetcher reads RSS and Atom feeds. Feeds carry no window parameter, so
// items are filtered by age after parsing.
type FeedFetcher struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// NewFeedFetcher creates a FeedFetcher with the given HTTP client timeout.
func NewFeedFetcher(timeout time.Duration, userAgent string) *FeedFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &FeedFetcher{
		client:    newClient(timeout),
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Fetch retrieves the feed at channel (with or without the "feed:" prefix).
func (f *FeedFetcher) Fetch(ctx context.Context, channel string, window model.Window) ([]model.CandidateItem, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	feedURL := strings.TrimPrefix(strings.TrimSpace(channel), FeedPrefix)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", feedURL, ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: HTTP %d", feedURL, ErrSourceUnavailable, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := f.now()
	name := feedURL
	if feed.Title != "" {
		name = feed.Title
	}

	items := make([]model.CandidateItem, 0, len(feed.Items))
	for _, fi := range feed.Items {
		items = append(items, convertFeedItem(fi, name, now))
	}

	return filter.ByAge(items, window.Duration(), now), nil
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// hnrss.org puts engagement into the description.
	pointsRe   = regexp.MustCompile(`(?i)points:\s*(\d+)`)
	commentsRe = regexp.MustCompile(`(?i)#\s*comments:\s*(\d+)`)
)

// convertFeedItem converts a gofeed.Item to a CandidateItem.
func convertFeedItem(fi *gofeed.Item, channel string, fetchTime time.Time) model.CandidateItem {
	created := fetchTime
	if fi.PublishedParsed != nil {
		created = *fi.PublishedParsed
	} else if fi.UpdatedParsed != nil {
		created = *fi.UpdatedParsed
	}

	raw := fi.Description
	if raw == "" {
		raw = fi.Content
	}

	return model.CandidateItem{
		ID:              generateID(fi),
		Title:           strings.TrimSpace(fi.Title),
		Body:            truncate(stripHTML(raw), 2000),
		EngagementScore: firstInt(pointsRe, raw),
		CommentCount:    firstInt(commentsRe, raw),
		CreatedAt:       created,
		Channel:         channel,
		Permalink:       fi.Link,
	}
}

// generateID prefers the GUID, then the link, then title plus date.
func generateID(fi *gofeed.Item) string {
	if fi.GUID != "" {
		return hashString(fi.GUID)
	}
	if fi.Link != "" {
		return hashString(fi.Link)
	}
	key := fi.Title
	if fi.PublishedParsed != nil {
		key += fi.PublishedParsed.String()
	}
	return hashString(key)
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
