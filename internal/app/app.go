// Package app wires goldmine's components together and exposes the
// operations the CLI and TUI call.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/goldmine/internal/blueprint"
	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/cache"
	"github.com/abelbrown/goldmine/internal/config"
	"github.com/abelbrown/goldmine/internal/fetch"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/pipeline"
	"github.com/abelbrown/goldmine/internal/quota"
	"github.com/abelbrown/goldmine/internal/relevance"
	"github.com/abelbrown/goldmine/internal/store"
)

// Deps are the collaborators a Service runs on. Store and Pipeline are
// required; the rest may be nil.
type Deps struct {
	Pipeline *pipeline.Orchestrator
	Store    *store.Store
	Cache    cache.Cache
	Events   *otel.Logger
	Ring     *otel.RingBuffer
	Metrics  *metrics.Pipeline
}

// Build opens the store, event log, cache and provider described by cfg
// and returns a ready Service. Close releases them.
func Build(cfg config.Config) (*Service, error) {
	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	st.SetLimits(cfg.Store.HistoryLimit, cfg.Store.FavoritesLimit)

	events := otel.NewNullLogger()
	if cfg.Log.EventsPath != "" {
		if l, err := otel.OpenFile(cfg.Log.EventsPath); err != nil {
			logging.Warn("Event log unavailable", "path", cfg.Log.EventsPath, "error", err)
		} else {
			events = l
		}
	}
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)

	var m *metrics.Pipeline
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
	}

	c, closeCache, err := buildCache(cfg, st)
	if err != nil {
		events.Close()
		st.Close()
		return nil, err
	}

	svc := New(cfg, Deps{
		Pipeline: BuildPipeline(cfg, events, m),
		Store:    st,
		Cache:    c,
		Events:   events,
		Ring:     ring,
		Metrics:  m,
	})
	svc.closers = append(svc.closers, closeCache, func() error { events.Close(); return nil }, st.Close)
	return svc, nil
}

func buildCache(cfg config.Config, st *store.Store) (cache.Cache, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Cache.Backend {
	case "redis":
		r, err := cache.NewRedis(cfg.Redis())
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return r, r.Close, nil
	case "none":
		return cache.Nop{}, noop, nil
	}
	return st.ResultCache(), noop, nil
}

// BuildPipeline assembles the fetchers, provider-backed stages and quota
// guard into an orchestrator. Without a usable provider the classifier and
// blueprint stages run in fallback mode.
func BuildPipeline(cfg config.Config, events *otel.Logger, m *metrics.Pipeline) *pipeline.Orchestrator {
	ua := cfg.Sources.UserAgent
	router := fetch.NewRouter(
		fetch.NewRedditFetcher(cfg.Pipeline.FetchTimeout, ua),
		fetch.NewFeedFetcher(cfg.Pipeline.FetchTimeout, ua),
	)
	multi := fetch.NewMulti(router, cfg.Pipeline.FetchConcurrency, cfg.Pipeline.FetchTimeout).
		WithEvents(events).
		WithMetrics(m)

	var (
		clsSvc relevance.Service
		bpSvc  blueprint.Service
	)
	if p := provider(cfg); p != nil {
		clsSvc = relevance.NewLLMService(p)
		bpSvc = blueprint.NewLLMService(p)
	}

	// One guard so classification and blueprints share the budget.
	guard := quota.NewGuard(cfg.Quota.PerMinute, cfg.Quota.PerDay)

	return pipeline.New(multi,
		relevance.NewClassifier(clsSvc, guard),
		blueprint.NewGenerator(bpSvc, guard),
		pipeline.WithCutoffs(cfg.Pipeline.ShortlistSize, cfg.Pipeline.FinalistSize),
		pipeline.WithBlueprintConcurrency(cfg.Pipeline.BlueprintConcurrency),
		pipeline.WithEvents(events),
		pipeline.WithMetrics(m),
	)
}

// provider returns the first usable provider of the configured chain,
// preferring the primary.
func provider(cfg config.Config) brain.Provider {
	pm := brain.NewProviderManager()
	for _, s := range cfg.ProviderChain() {
		p, err := brain.New(s)
		if err != nil {
			logging.Warn("Skipping generative provider", "provider", s.Provider, "error", err)
			continue
		}
		pm.AddProvider(p)
	}
	if primary, err := brain.New(cfg.Settings()); err == nil {
		pm.SetPreferred(primary.Name())
	}

	avail := pm.GetAvailable()
	if avail == nil {
		logging.Warn("No generative provider configured, using fallbacks", "provider", cfg.LLM.Provider)
		return nil
	}
	logging.Info("Generative provider ready", "provider", avail.Name(), "available", pm.ListAvailable())
	return avail
}

// Close releases everything Build opened.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
