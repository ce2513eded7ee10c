// Package metrics exposes the service's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "indexquery"

// Query outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeUnknownIndex = "unknown_index"
)

// Index build actions.
const (
	ActionBuilt   = "built"
	ActionSkipped = "skipped"
	ActionLoaded  = "loaded"
	ActionFailed  = "failed"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	indexBuilds   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries answered, by index and outcome.",
		}, []string{"index", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent answering a query.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"index"}),
		indexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index build steps at startup, by group and action.",
		}, []string{"group", "action"}),
	}
	m.registry.MustRegister(
		m.queries,
		m.queryDuration,
		m.indexBuilds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveQuery records one answered query.
func (m *Metrics) ObserveQuery(index, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(index, outcome).Inc()
	if outcome != OutcomeUnknownIndex {
		m.queryDuration.WithLabelValues(index).Observe(elapsed.Seconds())
	}
}

// IndexBuild records what startup did with a group's index.
func (m *Metrics) IndexBuild(group, action string) {
	if m == nil {
		return
	}
	m.indexBuilds.WithLabelValues(group, action).Inc()
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
