// Package pipeline runs the opportunity scan: fetch, dedup, filter, group,
// score, classify, rescore and draft blueprints for the finalists.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/goldmine/internal/blueprint"
	"github.com/abelbrown/goldmine/internal/correlation"
	"github.com/abelbrown/goldmine/internal/filter"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/ranking"
	"github.com/abelbrown/goldmine/internal/relevance"
)

// ErrInvalidInput is returned when a request has no topic, no channels or
// an unknown window.
var ErrInvalidInput = errors.New("invalid input")

// DefaultBlueprintConcurrency bounds concurrent blueprint calls.
const DefaultBlueprintConcurrency = 5

// ChannelFetcher fetches every channel and merges the results in channel
// order. A failing channel contributes nothing. fetch.Multi implements it.
type ChannelFetcher interface {
	FetchAll(ctx context.Context, channels []string, window model.Window) []model.CandidateItem
}

// Request describes one scan. Observer, if set, receives this run's stage
// transitions in addition to the orchestrator-wide observer.
type Request struct {
	Topic    string
	Channels []string
	Window   model.Window
	Observer StageObserver
}

// Orchestrator sequences the pipeline stages. It holds no per-run state and
// is safe for concurrent use.
type Orchestrator struct {
	fetcher    ChannelFetcher
	classifier *relevance.Classifier
	generator  *blueprint.Generator

	shortlistSize int
	finalistSize  int
	concurrency   int

	now      func() time.Time
	newID    func() string
	observer StageObserver
	events   *otel.Logger
	metrics  *metrics.Pipeline
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStageObserver reports stage transitions to fn.
func WithStageObserver(fn StageObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithClock sets the clock used for recency scoring and ScannedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDs sets the run id generator.
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithEvents records stage and degradation events.
func WithEvents(l *otel.Logger) Option {
	return func(o *Orchestrator) { o.events = l }
}

// WithMetrics records stage durations and run outcomes.
func WithMetrics(p *metrics.Pipeline) Option {
	return func(o *Orchestrator) { o.metrics = p }
}

// WithCutoffs overrides the shortlist and finalist sizes. Finalists are
// capped at model.MaxFindings.
func WithCutoffs(shortlist, finalists int) Option {
	return func(o *Orchestrator) {
		if shortlist > 0 {
			o.shortlistSize = shortlist
		}
		if finalists > 0 {
			o.finalistSize = min(finalists, model.MaxFindings)
		}
	}
}

// WithBlueprintConcurrency bounds concurrent blueprint calls.
func WithBlueprintConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates an Orchestrator. A nil classifier or generator degrades the
// corresponding stage on every run.
func New(f ChannelFetcher, c *relevance.Classifier, g *blueprint.Generator, opts ...Option) *Orchestrator {
	if c == nil {
		c = relevance.NewClassifier(nil, nil)
	}
	if g == nil {
		g = blueprint.NewGenerator(nil, nil)
	}
	o := &Orchestrator{
		fetcher:       f,
		classifier:    c,
		generator:     g,
		shortlistSize: ranking.ShortlistSize,
		finalistSize:  ranking.FinalistSize,
		concurrency:   DefaultBlueprintConcurrency,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks a request and fills in the default window.
func Validate(req Request) (Request, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return req, fmt.Errorf("%w: empty topic", ErrInvalidInput)
	}
	if len(req.Channels) == 0 {
		return req, fmt.Errorf("%w: no channels", ErrInvalidInput)
	}
	w, err := model.ParseWindow(string(req.Window))
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Window = w
	return req, nil
}

// Run executes one scan. Stage failures degrade rather than abort, so the
// only errors are ErrInvalidInput and the context's error when ctx ends
// before the result is assembled.
func (o *Orchestrator) Run(ctx context.Context, req Request) (model.AnalysisResult, error) {
	req, err := Validate(req)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	r := &run{o: o, id: o.newID(), start: time.Now(), observer: req.Observer}
	now := o.now()

	// Fetching
	r.enter(StageFetching, len(req.Channels))
	items := o.fetcher.FetchAll(ctx, req.Channels, req.Window)
	total := len(items)

	// Deduplicating
	r.enter(StageDeduplicating, len(items))
	items = filter.Dedup(items)

	// QuickFiltering
	r.enter(StageQuickFilter, len(items))
	items = filter.Quick(items)

	// Grouping
	r.enter(StageGrouping, len(items))
	sizes := correlation.GroupSizes(items)

	// ScoringPass1
	r.enter(StageScoringPass1, len(items))
	scored := make([]model.ScoredCandidate, len(items))
	for i, item := range items {
		c := model.NewScoredCandidate(item, i)
		c.SimilarCount = sizes[i]
		ranking.Rescore(&c, now)
		scored[i] = c
	}
	shortlist := ranking.Shortlist(scored, o.shortlistSize, now)

	// ClassifyingRelevance
	r.enter(StageClassifying, len(shortlist))
	classified := o.classifier.Classify(ctx, shortlist)
	if classified.Degraded {
		r.degrade(StageClassifying, otel.KindClassifyDegraded, classified.Reason)
	}

	// ScoringPass2
	r.enter(StageScoringPass2, len(classified.Items))
	finalists := ranking.Finalists(classified.Items, o.finalistSize, now)

	// GeneratingBlueprints
	r.enter(StageBlueprints, len(finalists))
	outcomes := o.blueprints(ctx, finalists)

	findings := make([]model.Finding, len(finalists))
	fellBack := false
	for i, out := range outcomes {
		findings[i] = model.NewFinding(i+1, finalists[i], out.Blueprint)
		if !out.Degraded {
			continue
		}
		if !fellBack {
			r.degraded = append(r.degraded, string(StageBlueprints))
			fellBack = true
		}
		o.events.Degraded(otel.KindBlueprintFallback, r.id, string(StageBlueprints), out.Reason)
		o.metrics.IncDegraded(string(StageBlueprints), out.Reason)
	}

	r.enter(StageAssembled, len(findings))

	if err := ctx.Err(); err != nil {
		return model.AnalysisResult{}, err
	}

	result := model.AnalysisResult{
		ID:              r.id,
		Topic:           req.Topic,
		Window:          req.Window,
		ScannedAt:       now,
		TotalCandidates: total,
		Findings:        findings,
		Degraded:        r.degraded,
	}

	o.metrics.RunCompleted(total, len(findings), len(r.degraded) > 0)
	o.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindRunComplete,
		Comp:  "pipeline",
		RunID: r.id,
		Topic: req.Topic,
		Count: len(findings),
		Dur:   time.Since(r.start),
	})
	logging.Info("Scan complete", "run", r.id, "topic", req.Topic,
		"candidates", total, "findings", len(findings), "degraded", r.degraded)

	return result, nil
}

// blueprints drafts one blueprint per finalist. Each goroutine writes only
// its own slot, so the result lines up with finalists.
func (o *Orchestrator) blueprints(ctx context.Context, finalists []model.ScoredCandidate) []blueprint.Outcome {
	outcomes := make([]blueprint.Outcome, len(finalists))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, c := range finalists {
		g.Go(func() error {
			outcomes[i] = o.generator.Generate(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// run tracks one execution's id, current stage and degraded stages.
type run struct {
	o        *Orchestrator
	observer StageObserver
	id       string
	start    time.Time
	stage    Stage
	entered  time.Time
	degraded []string
}

func (r *run) enter(s Stage, count int) {
	t := time.Now()
	if r.stage != "" {
		r.o.metrics.ObserveStage(string(r.stage), t.Sub(r.entered))
	}
	r.stage, r.entered = s, t

	logging.Debug("Stage", "run", r.id, "stage", s, "count", count)
	r.o.events.Stage(r.id, string(s), count)
	ev := StageEvent{RunID: r.id, Stage: s, Count: count, Elapsed: t.Sub(r.start)}
	if r.o.observer != nil {
		r.o.observer(ev)
	}
	if r.observer != nil {
		r.observer(ev)
	}
}

func (r *run) degrade(s Stage, kind otel.EventKind, reason string) {
	r.degraded = append(r.degraded, string(s))
	r.o.events.Degraded(kind, r.id, string(s), reason)
	r.o.metrics.IncDegraded(string(s), reason)
}
