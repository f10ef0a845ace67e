package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
)

const (
	// DefaultConcurrency limits parallel channel fetches.
	DefaultConcurrency = 5

	// DefaultChannelTimeout bounds one channel fetch.
	DefaultChannelTimeout = 30 * time.Second
)

// Multi fetches many channels concurrently. A channel that fails
// contributes no items; the batch itself never fails.
type Multi struct {
	fetcher     Fetcher
	concurrency int
	timeout     time.Duration
	events      *otel.Logger
	metrics     *metrics.Pipeline
}

// NewMulti wraps f. Zero concurrency or timeout take the defaults.
func NewMulti(f Fetcher, concurrency int, timeout time.Duration) *Multi {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	return &Multi{fetcher: f, concurrency: concurrency, timeout: timeout}
}

// WithEvents attaches an event log.
func (m *Multi) WithEvents(l *otel.Logger) *Multi {
	m.events = l
	return m
}

// WithMetrics attaches pipeline metrics.
func (m *Multi) WithMetrics(p *metrics.Pipeline) *Multi {
	m.metrics = p
	return m
}

// FetchAll fetches every channel and concatenates the results in channel
// order, whatever order the fetches finish in.
func (m *Multi) FetchAll(ctx context.Context, channels []string, window model.Window) []model.CandidateItem {
	results := make([][]model.CandidateItem, len(channels))

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, ch := range channels {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = m.fetchChannel(ctx, ch, window)
			return nil // never fail the group - errors reported per-channel
		})
	}
	_ = g.Wait()

	var total int
	for _, r := range results {
		total += len(r)
	}
	items := make([]model.CandidateItem, 0, total)
	for _, r := range results {
		items = append(items, r...)
	}
	return items
}

func (m *Multi) fetchChannel(ctx context.Context, channel string, window model.Window) []model.CandidateItem {
	fetchCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchStart, Comp: "fetch", Channel: channel})
	start := time.Now()

	items, err := m.fetcher.Fetch(fetchCtx, channel, window)
	m.metrics.ChannelFetched(channel, len(items), err)

	if err != nil {
		logging.Warn("Channel fetch failed", "channel", channel, "error", err)
		m.events.Emit(otel.Event{
			Level: otel.LevelWarn, Kind: otel.KindFetchError, Comp: "fetch",
			Channel: channel, Dur: time.Since(start), Err: err.Error(),
		})
		return nil
	}

	m.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindFetchComplete, Comp: "fetch",
		Channel: channel, Dur: time.Since(start), Count: len(items),
	})
	return items
}
