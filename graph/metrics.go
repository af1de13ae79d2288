package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation a Driver reports against,
// namespaced "pregel_": superstep counts and latencies, task outcomes,
// and cache hit/miss rates.
//
// Metrics exposed:
//
//  1. superstep_duration_ms (histogram): wall time of one prepare->apply
//     cycle. Labels: thread_id.
//  2. task_outcomes_total (counter): task results. Labels: node, outcome
//     (ok/error/retry).
//  3. inflight_tasks (gauge): tasks currently executing within the active
//     superstep.
//  4. cache_hits_total / cache_misses_total / cache_evictions_total
//     (gauges set to the cache's cumulative totals): node-invocation cache
//     activity.
//  5. interrupts_pending (gauge): threads currently paused on an interrupt.
type Metrics struct {
	superstepDuration *prometheus.HistogramVec
	taskOutcomes       *prometheus.CounterVec
	inflightTasks      prometheus.Gauge
	cacheHits          prometheus.Gauge
	cacheMisses        prometheus.Gauge
	cacheEvictions     prometheus.Gauge
	interruptsPending  prometheus.Gauge
}

// NewMetrics creates and registers the Driver's Prometheus metrics against
// registry (use prometheus.DefaultRegisterer for the global registry).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		superstepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pregel",
			Name:      "superstep_duration_ms",
			Help:      "Duration of a single superstep (prepare, execute, apply, checkpoint) in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"thread_id"}),
		taskOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pregel",
			Name:      "task_outcomes_total",
			Help:      "Task completions by node and outcome.",
		}, []string{"node", "outcome"}),
		inflightTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pregel",
			Name:      "inflight_tasks",
			Help:      "Tasks currently executing within the active superstep.",
		}),
		cacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pregel",
			Name:      "cache_hits_total",
			Help:      "Node invocation cache hits (cumulative).",
		}),
		cacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pregel",
			Name:      "cache_misses_total",
			Help:      "Node invocation cache misses (cumulative).",
		}),
		cacheEvictions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pregel",
			Name:      "cache_evictions_total",
			Help:      "Node invocation cache evictions (cumulative).",
		}),
		interruptsPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pregel",
			Name:      "interrupts_pending",
			Help:      "Threads currently paused on an interrupt.",
		}),
	}
}

func (m *Metrics) observeSuperstep(threadID string, ms float64) {
	if m == nil {
		return
	}
	m.superstepDuration.WithLabelValues(threadID).Observe(ms)
}

func (m *Metrics) recordTaskOutcome(node, outcome string) {
	if m == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(node, outcome).Inc()
}

func (m *Metrics) setInflightTasks(n int) {
	if m == nil {
		return
	}
	m.inflightTasks.Set(float64(n))
}

func (m *Metrics) recordCacheStats(s CacheStats) {
	if m == nil {
		return
	}
	m.cacheHits.Set(float64(s.Hits))
	m.cacheMisses.Set(float64(s.Misses))
	m.cacheEvictions.Set(float64(s.Evictions))
}

func (m *Metrics) setInterruptsPending(n int) {
	if m == nil {
		return
	}
	m.interruptsPending.Set(float64(n))
}
