package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics receives store lifecycle events.
type Metrics interface {
	// Hit is a read served from a fresh cached value.
	Hit()
	// Miss is a read that had to fetch.
	Miss()
	// Fetch is a request actually sent to the backend.
	Fetch()
	// Join is a read that attached to an already in-flight fetch.
	Join()
	// Invalidate counts entries marked stale.
	Invalidate(n int)
	// Drop is a fetch result discarded because newer data or a reset won.
	Drop()
	// Collect counts entries garbage-collected.
	Collect(n int)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit()           {}
func (NoopMetrics) Miss()          {}
func (NoopMetrics) Fetch()         {}
func (NoopMetrics) Join()          {}
func (NoopMetrics) Invalidate(int) {}
func (NoopMetrics) Drop()          {}
func (NoopMetrics) Collect(int)    {}

// PrometheusMetrics exports store events as counters.
type PrometheusMetrics struct {
	reads         *prometheus.CounterVec
	fetches       prometheus.Counter
	joins         prometheus.Counter
	invalidations prometheus.Counter
	drops         prometheus.Counter
	collected     prometheus.Counter
}

// NewPrometheusMetrics registers the store counters on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "reads_total",
			Help:      "Cache reads by result.",
		}, []string{"result"}),
		fetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "fetches_total",
			Help:      "Requests sent to the API on behalf of the cache.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "dedup_joins_total",
			Help:      "Reads that joined an in-flight request.",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "invalidations_total",
			Help:      "Entries marked stale.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "dropped_results_total",
			Help:      "Fetch results discarded as out of date.",
		}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "momento",
			Subsystem: "query",
			Name:      "collected_entries_total",
			Help:      "Unreferenced entries garbage-collected.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.fetches, m.joins, m.invalidations, m.drops, m.collected)
	}
	return m
}

func (m *PrometheusMetrics) Hit()             { m.reads.WithLabelValues("hit").Inc() }
func (m *PrometheusMetrics) Miss()            { m.reads.WithLabelValues("miss").Inc() }
func (m *PrometheusMetrics) Fetch()           { m.fetches.Inc() }
func (m *PrometheusMetrics) Join()            { m.joins.Inc() }
func (m *PrometheusMetrics) Invalidate(n int) { m.invalidations.Add(float64(n)) }
func (m *PrometheusMetrics) Drop()            { m.drops.Inc() }
func (m *PrometheusMetrics) Collect(n int)    { m.collected.Add(float64(n)) }
