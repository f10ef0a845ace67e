package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

const (
	redditBaseURL = "https://www.reddit.com"

	// RedditLimit is the listing size requested per channel.
	RedditLimit = 100
)

// RedditFetcher reads a subreddit's top listing.
type RedditFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limit     int
}

// NewRedditFetcher creates a fetcher against www.reddit.com.
func NewRedditFetcher(timeout time.Duration, userAgent string) *RedditFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RedditFetcher{
		client:    newClient(timeout),
		baseURL:   redditBaseURL,
		userAgent: userAgent,
		limit:     RedditLimit,
	}
}

// WithBaseURL points the fetcher at another host. Used by tests.
func (f *RedditFetcher) WithBaseURL(u string) *RedditFetcher {
	f.baseURL = strings.TrimSuffix(u, "/")
	return f
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Stickied    bool    `json:"stickied"`
}

// Fetch returns the subreddit's top posts for window. channel may carry the
// "r/" prefix.
func (f *RedditFetcher) Fetch(ctx context.Context, channel string, window model.Window) ([]model.CandidateItem, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	name := SubredditName(channel)
	if name == "" {
		return nil, fmt.Errorf("empty subreddit: %w", ErrSourceUnavailable)
	}

	u := fmt.Sprintf("%s/r/%s/top.json?t=%s&limit=%d", f.baseURL, url.PathEscape(name), window, f.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("r/%s: %w: %v", name, ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s: %w: HTTP %d", name, ErrSourceUnavailable, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("r/%s: decode listing: %w", name, err)
	}

	items := make([]model.CandidateItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.Stickied || p.Title == "" {
			continue
		}
		items = append(items, f.convert(p, name))
	}
	return items, nil
}

func (f *RedditFetcher) convert(p redditPost, name string) model.CandidateItem {
	sub := p.Subreddit
	if sub == "" {
		sub = name
	}
	id := p.ID
	if id == "" {
		id = hashString(p.Permalink + p.Title)
	}
	return model.CandidateItem{
		ID:              id,
		Title:           p.Title,
		Body:            p.Selftext,
		EngagementScore: max(p.Score, 0),
		CommentCount:    max(p.NumComments, 0),
		CreatedAt:       time.Unix(int64(p.CreatedUTC), 0).UTC(),
		Channel:         "r/" + sub,
		Permalink:       redditBaseURL + p.Permalink,
	}
}

// SubredditName strips an "r/" or "/r/" prefix.
func SubredditName(channel string) string {
	s := strings.TrimSpace(channel)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "r/")
	return strings.Trim(s, "/")
}
