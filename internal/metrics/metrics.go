package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailyknowledge"

// Pipeline holds the collectors of the daily fetch. A nil *Pipeline records nothing.
type Pipeline struct {
	registry            *prometheus.Registry
	sourceFailures      *prometheus.CounterVec
	curationFailures    *prometheus.CounterVec
	reconciliationDrops *prometheus.CounterVec
	insights            *prometheus.CounterVec
	runDuration         prometheus.Histogram
}

// NewPipeline registers all collectors on a private registry.
func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Feed endpoints that could not be retrieved.",
		}, []string{"source"}),
		curationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curation_failures_total",
			Help:      "Categories skipped because the summarization call failed.",
		}, []string{"category"}),
		reconciliationDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_dropped_total",
			Help:      "Model selections discarded during reconciliation.",
		}, []string{"category", "reason"}),
		insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_total",
			Help:      "Curated insights produced.",
		}, []string{"category"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full daily fetch.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
	}

	p.registry.MustRegister(
		p.sourceFailures,
		p.curationFailures,
		p.reconciliationDrops,
		p.insights,
		p.runDuration,
	)
	return p
}

// Registry exposes the underlying registry for gathering in tests.
func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler serves the collectors in the Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Pipeline) SourceFailed(source string) {
	if p == nil {
		return
	}
	p.sourceFailures.WithLabelValues(source).Inc()
}

func (p *Pipeline) CurationFailed(category string) {
	if p == nil {
		return
	}
	p.curationFailures.WithLabelValues(category).Inc()
}

func (p *Pipeline) SelectionDropped(category, reason string) {
	if p == nil {
		return
	}
	p.reconciliationDrops.WithLabelValues(category, reason).Inc()
}

func (p *Pipeline) InsightsProduced(category string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.insights.WithLabelValues(category).Add(float64(n))
}

func (p *Pipeline) ObserveRun(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}
