package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abelbrown/goldmine/internal/blueprint"
	"github.com/abelbrown/goldmine/internal/config"
	"github.com/abelbrown/goldmine/internal/fetch"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/pipeline"
	"github.com/abelbrown/goldmine/internal/quota"
	"github.com/abelbrown/goldmine/internal/relevance"
	"github.com/abelbrown/goldmine/internal/store"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingFetcher struct {
	mu       sync.Mutex
	calls    int
	channels [][]string
}

func (f *recordingFetcher) FetchAll(ctx context.Context, channels []string, window model.Window) []model.CandidateItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.channels = append(f.channels, channels)
	return []model.CandidateItem{
		{ID: "a", Title: "Need a tool for invoices", EngagementScore: 3, CreatedAt: now.Add(-time.Hour), Channel: channels[0]},
		{ID: "b", Title: "Is there an app to track receipts", EngagementScore: 2, CreatedAt: now.Add(-time.Hour), Channel: channels[0]},
	}
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type yesClassifier struct{}

func (yesClassifier) Classify(ctx context.Context, items []model.CandidateItem) ([]relevance.Verdict, error) {
	out := make([]relevance.Verdict, len(items))
	for i := range items {
		out[i] = relevance.Verdict{Index: i, IsOpportunity: true}
	}
	return out, nil
}

type namer struct{}

func (namer) Expand(ctx context.Context, c model.ScoredCandidate) (blueprint.Raw, error) {
	return blueprint.Raw{"solutionName": "Fix " + c.ID}, nil
}

type fixture struct {
	svc     *Service
	fetcher *recordingFetcher
	metrics *metrics.Pipeline
}

func newFixture(t *testing.T, clsGuard quota.Checker) fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &recordingFetcher{}
	m := metrics.New(prometheus.NewRegistry())
	events := otel.NewNullLogger()
	ring := otel.NewRingBuffer(32)
	events.SetRingBuffer(ring)
	t.Cleanup(events.Close)

	ids := 0
	orch := pipeline.New(f,
		relevance.NewClassifier(yesClassifier{}, clsGuard),
		blueprint.NewGenerator(namer{}, nil),
		pipeline.WithClock(func() time.Time { return now }),
		pipeline.WithIDs(func() string { ids++; return fmt.Sprintf("run-%d", ids) }),
		pipeline.WithMetrics(m),
	)

	cfg := config.Default()
	cfg.Cache.TTL = time.Hour
	svc := New(cfg, Deps{
		Pipeline: orch,
		Store:    st,
		Cache:    st.ResultCache(),
		Events:   events,
		Ring:     ring,
		Metrics:  m,
	})
	return fixture{svc: svc, fetcher: f, metrics: m}
}

func TestScanRunsPipelineAndSavesHistory(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	res, err := fx.svc.Scan(ctx, ScanRequest{UserID: "alice", Topic: "SaaS"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Cached {
		t.Error("first scan should not be cached")
	}
	if len(res.Analysis.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(res.Analysis.Findings))
	}
	if res.Analysis.Window != model.WindowWeek {
		t.Errorf("window = %q, want config default week", res.Analysis.Window)
	}
	if got, want := res.Channels, fetch.Topics["saas"]; len(got) != len(want) || got[0] != want[0] {
		t.Errorf("channels = %v, want %v", got, want)
	}

	h, err := fx.svc.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h) != 1 || h[0].ID != res.Analysis.ID {
		t.Errorf("history = %+v", h)
	}
}

func TestScanServesCacheHit(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	first, err := fx.svc.Scan(ctx, ScanRequest{UserID: "alice", Topic: "saas", Window: "day"})
	if err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	second, err := fx.svc.Scan(ctx, ScanRequest{UserID: "bob", Topic: " SaaS ", Window: "day"})
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if !second.Cached {
		t.Error("second scan should be a cache hit")
	}
	if second.Analysis.ID != first.Analysis.ID {
		t.Errorf("cached id = %q, want %q", second.Analysis.ID, first.Analysis.ID)
	}
	if fx.fetcher.count() != 1 {
		t.Errorf("fetches = %d, want 1", fx.fetcher.count())
	}
	if got := testutil.ToFloat64(fx.metrics.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}

	h, err := fx.svc.History(ctx, "bob")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h) != 1 || h[0].ID != first.Analysis.ID {
		t.Errorf("bob history = %+v", h)
	}
}

func TestScanNoCacheRunsAgain(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := fx.svc.Scan(ctx, ScanRequest{Topic: "saas", NoCache: true})
		if err != nil {
			t.Fatalf("Scan %d: %v", i, err)
		}
		if res.Cached {
			t.Errorf("scan %d served from cache", i)
		}
	}
	if fx.fetcher.count() != 2 {
		t.Errorf("fetches = %d, want 2", fx.fetcher.count())
	}
}

func TestScanExplicitChannelsSkipCache(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	req := ScanRequest{Topic: "saas", Channels: []string{" r/foo ", "", "r/foo", "feed:https://hnrss.org/ask"}}
	for i := 0; i < 2; i++ {
		res, err := fx.svc.Scan(ctx, req)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(res.Channels) != 2 || res.Channels[0] != "r/foo" {
			t.Errorf("channels = %v", res.Channels)
		}
	}
	if fx.fetcher.count() != 2 {
		t.Errorf("fetches = %d, want 2", fx.fetcher.count())
	}
}

func TestScanDegradedNotCached(t *testing.T) {
	fx := newFixture(t, quota.Deny{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := fx.svc.Scan(ctx, ScanRequest{Topic: "saas"})
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(res.Analysis.Degraded) == 0 {
			t.Error("expected a degraded result")
		}
	}
	if fx.fetcher.count() != 2 {
		t.Errorf("fetches = %d, want 2", fx.fetcher.count())
	}
}

func TestScanValidation(t *testing.T) {
	fx := newFixture(t, nil)
	cases := map[string]ScanRequest{
		"empty topic": {Topic: "   "},
		"bad window":  {Topic: "saas", Window: "year"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.Scan(context.Background(), req)
			if !errors.Is(err, pipeline.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if fx.fetcher.count() != 0 {
		t.Errorf("fetches = %d, want 0", fx.fetcher.count())
	}
}

func TestScanReportsStagesToObserver(t *testing.T) {
	fx := newFixture(t, nil)
	var stages []pipeline.Stage
	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		Topic:    "saas",
		Observer: func(e pipeline.StageEvent) { stages = append(stages, e.Stage) },
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(stages) != len(pipeline.Stages) {
		t.Errorf("stages = %v", stages)
	}
}

func TestFavorites(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	res, err := fx.svc.Scan(ctx, ScanRequest{UserID: "alice", Topic: "saas"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	fav, err := fx.svc.AddFavorite(ctx, "alice", res.Analysis.ID, 1)
	if err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if fav.Finding.Rank != 1 {
		t.Errorf("favorite rank = %d", fav.Finding.Rank)
	}
	if _, err := fx.svc.AddFavorite(ctx, "alice", res.Analysis.ID, 0); !errors.Is(err, pipeline.ErrInvalidInput) {
		t.Errorf("rank 0 err = %v", err)
	}
	if _, err := fx.svc.AddFavorite(ctx, "alice", "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing analysis err = %v", err)
	}

	favs, err := fx.svc.Favorites(ctx, "alice")
	if err != nil || len(favs) != 1 {
		t.Fatalf("Favorites = %v, %v", favs, err)
	}
	if err := fx.svc.RemoveFavorite(ctx, "alice", res.Analysis.ID, 1); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	if favs, _ := fx.svc.Favorites(ctx, "alice"); len(favs) != 0 {
		t.Errorf("favorites after remove = %d", len(favs))
	}
}

func TestChannelsResolution(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Channels = []string{"r/configured"}
	svc := New(cfg, Deps{})

	if got, explicit := svc.Channels("anything", []string{"r/x"}); !explicit || len(got) != 1 || got[0] != "r/x" {
		t.Errorf("explicit = %v, %v", got, explicit)
	}
	if got, explicit := svc.Channels("Marketing", nil); explicit || got[0] != fetch.Topics["marketing"][0] {
		t.Errorf("topic map = %v, %v", got, explicit)
	}
	if got, _ := svc.Channels("underwater basket weaving", nil); len(got) != 1 || got[0] != "r/configured" {
		t.Errorf("configured = %v", got)
	}

	svc = New(config.Default(), Deps{})
	if got, _ := svc.Channels("underwater basket weaving", nil); len(got) != len(fetch.DefaultChannels) {
		t.Errorf("default = %v", got)
	}
}

func TestBuildInMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = ":memory:"
	cfg.Log.EventsPath = ""
	cfg.Cache.Backend = "none"
	cfg.LLM.APIKey = ""

	svc, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if svc.Events() == nil {
		t.Error("ring buffer missing")
	}
	if svc.Metrics() != nil {
		t.Error("metrics should be off by default")
	}
	if err := svc.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestProviderFallsBackWhenPrimaryHasNoKey(t *testing.T) {
	load := func(env map[string]string) config.Config {
		t.Helper()
		cfg, err := config.LoadWith("", func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		})
		if err != nil {
			t.Fatalf("LoadWith: %v", err)
		}
		return cfg
	}

	if p := provider(load(map[string]string{"XAI_API_KEY": "xai"})); p == nil || p.Name() != "grok" {
		t.Errorf("provider = %v, want grok fallback", p)
	}
	if p := provider(load(map[string]string{"XAI_API_KEY": "xai", "OPENAI_API_KEY": "oai"})); p == nil || p.Name() != "openai" {
		t.Errorf("provider = %v, want openai fallback first", p)
	}
	if p := provider(load(map[string]string{"ANTHROPIC_API_KEY": "ant", "OPENAI_API_KEY": "oai"})); p == nil || p.Name() != "claude" {
		t.Errorf("provider = %v, want primary claude", p)
	}
	if p := provider(load(nil)); p != nil {
		t.Errorf("provider = %s, want none without keys", p.Name())
	}
}
