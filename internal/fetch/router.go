package fetch

import (
	"context"
	"strings"

	"github.com/abelbrown/goldmine/internal/model"
)

// Kind is the type of source behind a channel.
type Kind string

const (
	KindReddit Kind = "reddit"
	KindFeed   Kind = "feed"
)

// ChannelKind classifies a channel string.
func ChannelKind(channel string) Kind {
	if strings.HasPrefix(strings.TrimSpace(channel), FeedPrefix) {
		return KindFeed
	}
	return KindReddit
}

// Router dispatches each channel to the fetcher for its kind.
type Router struct {
	Reddit Fetcher
	Feed   Fetcher
}

// NewRouter wires the default Reddit and feed fetchers.
func NewRouter(reddit, feed Fetcher) *Router {
	return &Router{Reddit: reddit, Feed: feed}
}

func (r *Router) Fetch(ctx context.Context, channel string, window model.Window) ([]model.CandidateItem, error) {
	switch ChannelKind(channel) {
	case KindFeed:
		return r.Feed.Fetch(ctx, channel, window)
	default:
		return r.Reddit.Fetch(ctx, channel, window)
	}
}
