// Package metrics exposes Prometheus counters and histograms for scans.
//
// All methods are nil-safe so callers can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goldmine"

// Pipeline holds the scan metrics.
type Pipeline struct {
	gatherer prometheus.Gatherer

	Runs             *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	Degraded         *prometheus.CounterVec
	ChannelFailures  *prometheus.CounterVec
	ChannelItems     *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	FindingsPerRun   prometheus.Histogram
	CandidatesPerRun prometheus.Histogram
}

// New registers the metrics on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Pipeline {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Pipeline{
		gatherer: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		Degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Stages that took their fallback path, by reason.",
		}, []string{"stage", "reason"}),
		ChannelFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_failures_total",
			Help:      "Channel fetches that failed.",
		}, []string{"channel"}),
		ChannelItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_items_total",
			Help:      "Items fetched per channel.",
		}, []string{"channel"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		FindingsPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "findings_per_run",
			Help:      "Findings in each assembled result.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		CandidatesPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_run",
			Help:      "Raw candidates fetched per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveStage records how long a stage took.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncDegraded counts a stage fallback.
func (p *Pipeline) IncDegraded(stage, reason string) {
	if p == nil {
		return
	}
	p.Degraded.WithLabelValues(stage, reason).Inc()
}

// ChannelFetched records the outcome of one channel fetch.
func (p *Pipeline) ChannelFetched(channel string, items int, err error) {
	if p == nil {
		return
	}
	if err != nil {
		p.ChannelFailures.WithLabelValues(channel).Inc()
		return
	}
	p.ChannelItems.WithLabelValues(channel).Add(float64(items))
}

// CacheLookup counts a cache hit, miss or error.
func (p *Pipeline) CacheLookup(result string) {
	if p == nil {
		return
	}
	p.CacheLookups.WithLabelValues(result).Inc()
}

// RunCompleted records an assembled result.
func (p *Pipeline) RunCompleted(candidates, findings int, degraded bool) {
	if p == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	p.Runs.WithLabelValues(outcome).Inc()
	p.CandidatesPerRun.Observe(float64(candidates))
	p.FindingsPerRun.Observe(float64(findings))
}

// Handler serves the registry in the Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
