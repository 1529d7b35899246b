package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg               *prom.Registry
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	stageResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	items             *prom.CounterVec
	references        *prom.CounterVec
	cacheHits         prom.Gauge
	cacheMisses       prom.Gauge
	cacheEntries      prom.Gauge
	renderConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg,
// or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		items: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Collected content items by bucket",
		}, []string{"bucket"}),
		references: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "references_total",
			Help:      "Typed references seen by the resolver",
		}, []string{"kind", "result"}),
		cacheHits: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "template_cache_hits",
			Help:      "Template cache hits in the last build",
		}),
		cacheMisses: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "template_cache_misses",
			Help:      "Template cache misses in the last build",
		}),
		cacheEntries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "template_cache_entries",
			Help:      "Distinct compiled templates in the last build",
		}),
		renderConcurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "render_concurrency",
			Help:      "Render workers used by the last build",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.items, pr.references, pr.cacheHits, pr.cacheMisses, pr.cacheEntries, pr.renderConcurrency)
	return pr
}

// Registry returns the registry the recorder's collectors live in.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddItems(bucket string, n int) {
	p.items.WithLabelValues(bucket).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveReference(kind string, resolved bool) {
	res := "unresolved"
	if resolved {
		res = "resolved"
	}
	p.references.WithLabelValues(kind, res).Inc()
}

func (p *PrometheusRecorder) SetTemplateCache(hits, misses int64, entries int) {
	p.cacheHits.Set(float64(hits))
	p.cacheMisses.Set(float64(misses))
	p.cacheEntries.Set(float64(entries))
}

func (p *PrometheusRecorder) SetRenderConcurrency(n int) {
	p.renderConcurrency.Set(float64(n))
}

// WriteTextfile writes every metric in the recorder's registry to path in
// the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
