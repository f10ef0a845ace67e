package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abelbrown/goldmine/internal/cache"
	"github.com/abelbrown/goldmine/internal/config"
	"github.com/abelbrown/goldmine/internal/fetch"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/pipeline"
	"github.com/abelbrown/goldmine/internal/store"
)

// DefaultUserID owns scans when the caller names no user.
const DefaultUserID = "local"

// ScanRequest is a user's request to scan a topic.
type ScanRequest struct {
	UserID   string   `validate:"required,max=64"`
	Topic    string   `validate:"required,max=200"`
	Channels []string `validate:"omitempty,max=25,dive,required"`
	Window   string   `validate:"omitempty,oneof=day week month"`
	NoCache  bool

	Observer pipeline.StageObserver `validate:"-"`
}

// ScanResult is a finished scan and where it came from.
type ScanResult struct {
	Analysis model.AnalysisResult
	Channels []string
	Cached   bool
}

// Service runs scans and manages history and favorites.
type Service struct {
	cfg      config.Config
	pipeline *pipeline.Orchestrator
	store    *store.Store
	cache    cache.Cache
	events   *otel.Logger
	ring     *otel.RingBuffer
	metrics  *metrics.Pipeline
	validate *validator.Validate
	closers  []func() error
}

// New creates a Service over deps. A nil cache disables caching.
func New(cfg config.Config, deps Deps) *Service {
	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{
		cfg:      cfg,
		pipeline: deps.Pipeline,
		store:    deps.Store,
		cache:    c,
		events:   deps.Events,
		ring:     deps.Ring,
		metrics:  deps.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() config.Config { return s.cfg }

// Events returns the in-memory ring of recent events, or nil.
func (s *Service) Events() *otel.RingBuffer { return s.ring }

// Metrics returns the metrics registry, or nil when disabled.
func (s *Service) Metrics() *metrics.Pipeline { return s.metrics }

// Scan answers req from the cache when it can, otherwise runs the
// pipeline. The result is saved to the user's history either way.
// Only bad requests and cancellation are errors; cache and store trouble
// is logged and skipped.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Topic = strings.TrimSpace(req.Topic)
	req.Window = strings.TrimSpace(req.Window)
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}
	if req.Window == "" {
		req.Window = s.cfg.Sources.Window
	}
	if err := s.validate.Struct(req); err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
	}

	window, err := model.ParseWindow(req.Window)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
	}

	channels, explicit := s.Channels(req.Topic, req.Channels)
	key := cache.Key(req.Topic, window)
	// Explicit channels make the result specific to that list, so the
	// topic-keyed cache is left alone.
	useCache := !explicit

	if useCache && !req.NoCache {
		if hit, ok := s.lookup(ctx, key, req.Topic); ok {
			s.save(ctx, req.UserID, *hit)
			return ScanResult{Analysis: *hit, Channels: channels, Cached: true}, nil
		}
	}

	result, err := s.pipeline.Run(ctx, pipeline.Request{
		Topic:    req.Topic,
		Channels: channels,
		Window:   window,
		Observer: req.Observer,
	})
	if err != nil {
		return ScanResult{}, err
	}

	// Degraded results are not cached so the next scan gets another try.
	if useCache && len(result.Degraded) == 0 {
		if err := s.cache.Put(ctx, key, result, s.cfg.Cache.TTL); err != nil {
			logging.Warn("Cache write failed", "key", key, "error", err)
			s.events.Error(otel.KindCacheError, "app", err)
		}
	}
	s.save(ctx, req.UserID, result)

	return ScanResult{Analysis: result, Channels: channels}, nil
}

func (s *Service) lookup(ctx context.Context, key, topic string) (*model.AnalysisResult, bool) {
	hit, err := s.cache.Get(ctx, key)
	switch {
	case err == nil && hit != nil:
		s.metrics.CacheLookup("hit")
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCacheHit, Comp: "app", RunID: hit.ID, Topic: topic})
		logging.Info("Serving cached analysis", "key", key, "run", hit.ID)
		return hit, true
	case err == nil || errors.Is(err, cache.ErrMiss):
		s.metrics.CacheLookup("miss")
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCacheMiss, Comp: "app", Topic: topic})
	default:
		s.metrics.CacheLookup("error")
		s.events.Error(otel.KindCacheError, "app", err)
		logging.Warn("Cache read failed", "key", key, "error", err)
	}
	return nil, false
}

func (s *Service) save(ctx context.Context, userID string, result model.AnalysisResult) {
	if err := s.store.SaveAnalysis(ctx, userID, result); err != nil {
		logging.Warn("Saving analysis failed", "run", result.ID, "error", err)
		s.events.Error(otel.KindStoreError, "app", err)
	}
}

// Channels resolves the channels to scan for topic. Explicit channels win
// and report true; otherwise the built-in topic map, then the configured
// defaults, then fetch.DefaultChannels.
func (s *Service) Channels(topic string, explicit []string) ([]string, bool) {
	if chans := cleanChannels(explicit); len(chans) > 0 {
		return chans, true
	}
	if chans, ok := fetch.Topics[fetch.NormalizeTopic(topic)]; ok {
		return append([]string(nil), chans...), false
	}
	if chans := cleanChannels(s.cfg.Sources.Channels); len(chans) > 0 {
		return chans, false
	}
	return fetch.ChannelsForTopic(topic), false
}

// cleanChannels trims, drops blanks and removes repeats, keeping order.
func cleanChannels(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// History lists the user's recent analyses, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]store.HistoryEntry, error) {
	return s.store.History(ctx, userOr(userID))
}

// Analysis loads a saved analysis.
func (s *Service) Analysis(ctx context.Context, id string) (model.AnalysisResult, error) {
	return s.store.GetAnalysis(ctx, strings.TrimSpace(id))
}

// AddFavorite bookmarks the finding at rank in a saved analysis.
func (s *Service) AddFavorite(ctx context.Context, userID, analysisID string, rank int) (store.Favorite, error) {
	if rank < 1 || rank > model.MaxFindings {
		return store.Favorite{}, fmt.Errorf("%w: rank %d out of range", pipeline.ErrInvalidInput, rank)
	}
	return s.store.AddFavorite(ctx, userOr(userID), strings.TrimSpace(analysisID), rank)
}

// RemoveFavorite deletes a bookmark.
func (s *Service) RemoveFavorite(ctx context.Context, userID, analysisID string, rank int) error {
	return s.store.RemoveFavorite(ctx, userOr(userID), strings.TrimSpace(analysisID), rank)
}

// Favorites lists the user's bookmarks.
func (s *Service) Favorites(ctx context.Context, userID string) ([]store.Favorite, error) {
	return s.store.Favorites(ctx, userOr(userID))
}

func userOr(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return DefaultUserID
}
