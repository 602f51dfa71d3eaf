// Package prometheus implements chartz.MetricsProvider with
// github.com/prometheus/client_golang collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zoobzio/chartz"
)

// Provider records source and pipeline events as Prometheus metrics. One
// Provider may be shared by many sources and pipelines; use Labeled to tell
// them apart.
type Provider struct {
	transitions *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	fetchTime   *prometheus.HistogramVec
	discarded   *prometheus.CounterVec
	renders     *prometheus.CounterVec
	renderTime  *prometheus.HistogramVec
	skipped     *prometheus.CounterVec
}

// New registers the chartz collectors with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Provider {
	factory := promauto.With(reg)
	return &Provider{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_state_transitions_total",
				Help:      "Source state transitions",
			},
			[]string{"chart", "from", "to"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetches_total",
				Help:      "Completed fetches by outcome",
			},
			[]string{"chart", "outcome"},
		),
		fetchTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Fetch and decode duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"chart"},
		),
		discarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetches_discarded_total",
				Help:      "Fetches completed after their source was closed",
			},
			[]string{"chart"},
		),
		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_renders_total",
				Help:      "Chart instances created",
			},
			[]string{"chart"},
		),
		renderTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_render_duration_seconds",
				Help:      "Chart instance replacement duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"chart"},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_renders_skipped_total",
				Help:      "Syncs that found no render input changed",
			},
			[]string{"chart"},
		),
	}
}

// Labeled returns a chartz.MetricsProvider recording under the given chart name.
func (p *Provider) Labeled(chart string) chartz.MetricsProvider {
	return &labeled{p: p, chart: chart}
}

type labeled struct {
	p     *Provider
	chart string
}

func (l *labeled) OnStateChange(from, to chartz.State) {
	l.p.transitions.WithLabelValues(l.chart, from.String(), to.String()).Inc()
}

func (l *labeled) OnFetchSuccess(d time.Duration) {
	l.p.fetches.WithLabelValues(l.chart, "success").Inc()
	l.p.fetchTime.WithLabelValues(l.chart).Observe(d.Seconds())
}

func (l *labeled) OnFetchFailure(stage string, d time.Duration) {
	l.p.fetches.WithLabelValues(l.chart, stage+"_error").Inc()
	l.p.fetchTime.WithLabelValues(l.chart).Observe(d.Seconds())
}

func (l *labeled) OnFetchDiscarded() {
	l.p.discarded.WithLabelValues(l.chart).Inc()
}

func (l *labeled) OnRender(d time.Duration) {
	l.p.renders.WithLabelValues(l.chart).Inc()
	l.p.renderTime.WithLabelValues(l.chart).Observe(d.Seconds())
}

func (l *labeled) OnRenderSkipped() {
	l.p.skipped.WithLabelValues(l.chart).Inc()
}

var _ chartz.MetricsProvider = (*labeled)(nil)
