package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abelbrown/goldmine/internal/blueprint"
	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/otel"
	"github.com/abelbrown/goldmine/internal/quota"
	"github.com/abelbrown/goldmine/internal/relevance"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeFetcher returns a fixed batch for every call.
type fakeFetcher struct {
	items []model.CandidateItem
	calls atomic.Int32
}

func (f *fakeFetcher) FetchAll(ctx context.Context, channels []string, window model.Window) []model.CandidateItem {
	f.calls.Add(1)
	return append([]model.CandidateItem(nil), f.items...)
}

// fakeClassifier marks every item an opportunity unless listed in reject.
// scores maps item id to a relevance score.
type fakeClassifier struct {
	reject map[string]bool
	scores map[string]float64
	err    error
	seen   atomic.Int32
	calls  atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, items []model.CandidateItem) ([]relevance.Verdict, error) {
	f.calls.Add(1)
	f.seen.Store(int32(len(items)))
	if f.err != nil {
		return nil, f.err
	}
	verdicts := make([]relevance.Verdict, 0, len(items))
	for i, item := range items {
		v := relevance.Verdict{Index: i, IsOpportunity: !f.reject[item.ID], Intensity: "medium"}
		if s, ok := f.scores[item.ID]; ok {
			v.RelevanceScore = &s
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// fakeExpander drafts a blueprint named after the item, failing for ids in fail.
type fakeExpander struct {
	fail  map[string]error
	delay func(id string) time.Duration
	calls atomic.Int32
}

func (f *fakeExpander) Expand(ctx context.Context, c model.ScoredCandidate) (blueprint.Raw, error) {
	f.calls.Add(1)
	if f.delay != nil {
		time.Sleep(f.delay(c.ID))
	}
	if err := f.fail[c.ID]; err != nil {
		return nil, err
	}
	return blueprint.Raw{
		"solutionName":  "Fix " + c.ID,
		"solutionPitch": "A pitch.",
		"mechanism":     "It works.",
		"marketSize":    "Large",
		"keyFeatures":   []any{"one", "two"},
	}, nil
}

func post(id, title string, score int, age time.Duration) model.CandidateItem {
	return model.CandidateItem{
		ID:              id,
		Title:           title,
		EngagementScore: score,
		CreatedAt:       testNow.Add(-age),
		Channel:         "r/test",
		Permalink:       "https://www.reddit.com/r/test/" + id,
	}
}

func newTestOrchestrator(f ChannelFetcher, cls relevance.Service, exp blueprint.Service, clsGuard quota.Checker, opts ...Option) *Orchestrator {
	ids := 0
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDs(func() string { ids++; return fmt.Sprintf("run-%d", ids) }),
	}
	return New(f,
		relevance.NewClassifier(cls, clsGuard),
		blueprint.NewGenerator(exp, nil),
		append(base, opts...)...)
}

func req() Request {
	return Request{Topic: "saas", Channels: []string{"r/test"}, Window: model.WindowWeek}
}

func TestRunDedupsIdenticalPosts(t *testing.T) {
	f := &fakeFetcher{items: []model.CandidateItem{
		post("a", "Need a tool for X", 5, time.Hour),
		post("b", "Need a tool for X", 5, time.Hour),
		post("c", "Look at my cat", 50, time.Hour),
	}}
	o := newTestOrchestrator(f, &fakeClassifier{}, &fakeExpander{}, nil)

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalCandidates != 3 {
		t.Errorf("TotalCandidates = %d, want 3", res.TotalCandidates)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	if res.Findings[0].ID != "a" {
		t.Errorf("kept %q, want first-seen a", res.Findings[0].ID)
	}
	if res.Findings[0].SimilarCount != 1 {
		t.Errorf("SimilarCount = %d, want 1", res.Findings[0].SimilarCount)
	}
	if len(res.Degraded) != 0 {
		t.Errorf("Degraded = %v, want none", res.Degraded)
	}
	if res.ID != "run-1" || res.Topic != "saas" || res.Window != model.WindowWeek || !res.ScannedAt.Equal(testNow) {
		t.Errorf("result header = %+v", res)
	}
}

// manyPosts returns n posts whose gold score grows with the index:
// score i at 160h old gives base 1.2*i.
func manyPosts(n int) []model.CandidateItem {
	items := make([]model.CandidateItem, n)
	for i := range items {
		items[i] = post(fmt.Sprintf("p%02d", i+1), fmt.Sprintf("Need a tool for chore%02d", i+1), i+1, 160*time.Hour)
	}
	return items
}

func TestRunAppliesCutoffsAndOrder(t *testing.T) {
	f := &fakeFetcher{items: manyPosts(25)}
	cls := &fakeClassifier{}
	exp := &fakeExpander{}
	o := newTestOrchestrator(f, cls, exp, nil)

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := cls.seen.Load(); got != 20 {
		t.Errorf("classifier saw %d items, want 20", got)
	}
	if got := exp.calls.Load(); got != 10 {
		t.Errorf("blueprint calls = %d, want 10", got)
	}
	if len(res.Findings) != 10 {
		t.Fatalf("findings = %d, want 10", len(res.Findings))
	}
	for i, fnd := range res.Findings {
		wantID := fmt.Sprintf("p%02d", 25-i)
		if fnd.ID != wantID {
			t.Errorf("finding %d = %s, want %s", i, fnd.ID, wantID)
		}
		if fnd.Rank != i+1 {
			t.Errorf("finding %d rank = %d", i, fnd.Rank)
		}
		if fnd.Blueprint.SolutionName != "Fix "+wantID {
			t.Errorf("finding %d blueprint = %q", i, fnd.Blueprint.SolutionName)
		}
		if i > 0 && fnd.GoldScore > res.Findings[i-1].GoldScore {
			t.Errorf("finding %d score %d above previous %d", i, fnd.GoldScore, res.Findings[i-1].GoldScore)
		}
	}
	if res.Findings[0].GoldScore != 30 {
		t.Errorf("top score = %d, want 30", res.Findings[0].GoldScore)
	}
}

func TestRunQuotaDeniedFailsOpen(t *testing.T) {
	f := &fakeFetcher{items: manyPosts(5)}
	cls := &fakeClassifier{reject: map[string]bool{"p01": true, "p02": true}}
	o := newTestOrchestrator(f, cls, &fakeExpander{}, quota.Deny{})

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cls.calls.Load() != 0 {
		t.Errorf("classifier called %d times, want 0", cls.calls.Load())
	}
	if len(res.Findings) != 5 {
		t.Fatalf("findings = %d, want 5", len(res.Findings))
	}
	for _, fnd := range res.Findings {
		if fnd.RelevanceMultiplier != 1.0 {
			t.Errorf("%s multiplier = %v, want 1.0", fnd.ID, fnd.RelevanceMultiplier)
		}
	}
	if len(res.Degraded) != 1 || res.Degraded[0] != string(StageClassifying) {
		t.Errorf("Degraded = %v, want [%s]", res.Degraded, StageClassifying)
	}
}

func TestRunMultiplierReorders(t *testing.T) {
	f := &fakeFetcher{items: []model.CandidateItem{
		post("a", "Need a tool for billing", 10, 160*time.Hour),  // base 12
		post("b", "Need a tool for payroll", 6, 160*time.Hour),   // base 7.2
		post("c", "Need a tool for shipping", 20, 160*time.Hour), // rejected
	}}
	cls := &fakeClassifier{
		reject: map[string]bool{"c": true},
		scores: map[string]float64{"a": 0.5, "b": 1.5},
	}
	o := newTestOrchestrator(f, cls, &fakeExpander{}, nil)

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(res.Findings))
	}
	if res.Findings[0].ID != "b" || res.Findings[0].GoldScore != 11 {
		t.Errorf("first = %s/%d, want b/11", res.Findings[0].ID, res.Findings[0].GoldScore)
	}
	if res.Findings[1].ID != "a" || res.Findings[1].GoldScore != 6 {
		t.Errorf("second = %s/%d, want a/6", res.Findings[1].ID, res.Findings[1].GoldScore)
	}
	if res.Findings[0].Intensity != "medium" {
		t.Errorf("intensity = %q, want medium", res.Findings[0].Intensity)
	}
}

func TestRunClassifierErrorFailsOpen(t *testing.T) {
	f := &fakeFetcher{items: manyPosts(3)}
	cls := &fakeClassifier{err: fmt.Errorf("bad json: %w", brain.ErrMalformedResponse)}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	o := newTestOrchestrator(f, cls, &fakeExpander{}, nil, WithMetrics(m))

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Findings) != 3 {
		t.Errorf("findings = %d, want 3", len(res.Findings))
	}
	if got := testutil.ToFloat64(m.Degraded.WithLabelValues(string(StageClassifying), "malformed_response")); got != 1 {
		t.Errorf("degraded counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("degraded")); got != 1 {
		t.Errorf("degraded runs = %v, want 1", got)
	}
}

func TestRunBlueprintFallbackIsolated(t *testing.T) {
	f := &fakeFetcher{items: manyPosts(3)}
	exp := &fakeExpander{fail: map[string]error{"p02": brain.ErrQuotaExceeded}}
	o := newTestOrchestrator(f, &fakeClassifier{}, exp, nil)

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Findings) != 3 {
		t.Fatalf("findings = %d, want 3", len(res.Findings))
	}
	for _, fnd := range res.Findings {
		if fnd.ID == "p02" {
			if fnd.Blueprint.SolutionName != blueprint.FallbackSolutionName {
				t.Errorf("p02 blueprint = %q, want fallback", fnd.Blueprint.SolutionName)
			}
			continue
		}
		if fnd.Blueprint.SolutionName != "Fix "+fnd.ID {
			t.Errorf("%s blueprint = %q", fnd.ID, fnd.Blueprint.SolutionName)
		}
	}
	if len(res.Degraded) != 1 || res.Degraded[0] != string(StageBlueprints) {
		t.Errorf("Degraded = %v, want [%s]", res.Degraded, StageBlueprints)
	}
}

func TestRunBlueprintOrderIndependentOfCompletion(t *testing.T) {
	f := &fakeFetcher{items: manyPosts(6)}
	// Higher-ranked items finish last.
	exp := &fakeExpander{delay: func(id string) time.Duration {
		var n int
		fmt.Sscanf(id, "p%d", &n)
		return time.Duration(n) * 5 * time.Millisecond
	}}
	o := newTestOrchestrator(f, &fakeClassifier{}, exp, nil, WithBlueprintConcurrency(6))

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, fnd := range res.Findings {
		if want := fmt.Sprintf("p%02d", 6-i); fnd.ID != want || fnd.Blueprint.SolutionName != "Fix "+want {
			t.Errorf("finding %d = %s/%q, want %s", i, fnd.ID, fnd.Blueprint.SolutionName, want)
		}
	}
}

func TestRunAllChannelsEmpty(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{}, &fakeClassifier{}, &fakeExpander{}, nil)

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalCandidates != 0 || len(res.Findings) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if res.Findings == nil {
		t.Error("Findings should be an empty slice, not nil")
	}
	if len(res.Degraded) != 0 {
		t.Errorf("Degraded = %v", res.Degraded)
	}
}

func TestRunInvalidInput(t *testing.T) {
	cases := map[string]Request{
		"empty topic": {Topic: "  ", Channels: []string{"r/a"}},
		"no channels": {Topic: "saas"},
		"bad window":  {Topic: "saas", Channels: []string{"r/a"}, Window: "year"},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			f := &fakeFetcher{}
			o := newTestOrchestrator(f, nil, nil, nil)
			_, err := o.Run(context.Background(), r)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if f.calls.Load() != 0 {
				t.Error("fetcher should not be called")
			}
		})
	}
}

func TestValidateDefaultsWindow(t *testing.T) {
	got, err := Validate(Request{Topic: " saas ", Channels: []string{"r/a"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Window != model.DefaultWindow || got.Topic != "saas" {
		t.Errorf("Validate = %+v", got)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newTestOrchestrator(&fakeFetcher{items: manyPosts(2)}, &fakeClassifier{}, &fakeExpander{}, nil)

	if _, err := o.Run(ctx, req()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunReportsStages(t *testing.T) {
	var mu sync.Mutex
	var seen []Stage
	obs := func(e StageEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Stage)
		if e.RunID != "run-1" {
			t.Errorf("stage %s run id = %q", e.Stage, e.RunID)
		}
	}
	o := newTestOrchestrator(&fakeFetcher{items: manyPosts(2)}, &fakeClassifier{}, &fakeExpander{}, nil,
		WithStageObserver(obs))

	if _, err := o.Run(context.Background(), req()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != len(Stages) {
		t.Fatalf("stages = %v, want %v", seen, Stages)
	}
	for i := range Stages {
		if seen[i] != Stages[i] {
			t.Errorf("stage %d = %s, want %s", i, seen[i], Stages[i])
		}
	}
}

func TestRunEmitsEvents(t *testing.T) {
	var buf bytes.Buffer
	events := otel.NewLogger(&buf)
	o := newTestOrchestrator(&fakeFetcher{items: manyPosts(2)}, &fakeClassifier{}, &fakeExpander{}, quota.Deny{},
		WithEvents(events))

	res, err := o.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	events.Close()

	got, err := otel.Tail(&buf, 100)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	kinds := map[otel.EventKind]int{}
	for _, e := range got {
		kinds[e.Kind]++
		if e.RunID != res.ID {
			t.Errorf("event %s run id = %q, want %q", e.Kind, e.RunID, res.ID)
		}
	}
	if kinds[otel.KindStageEnter] != len(Stages) {
		t.Errorf("stage events = %d, want %d", kinds[otel.KindStageEnter], len(Stages))
	}
	if kinds[otel.KindClassifyDegraded] != 1 {
		t.Errorf("classify.degraded events = %d, want 1", kinds[otel.KindClassifyDegraded])
	}
	if kinds[otel.KindRunComplete] != 1 {
		t.Errorf("run.complete events = %d, want 1", kinds[otel.KindRunComplete])
	}
}

func TestStageLabels(t *testing.T) {
	for _, s := range Stages {
		if s.Label() == "" || s.Label() == string(s) {
			t.Errorf("stage %s has no label", s)
		}
	}
}
