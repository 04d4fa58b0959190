// Package metrics exposes interpreter and pathfinding activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "benzo"

// Collector holds the counters for one process, on its own registry so that
// tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	StepsExecuted *prometheus.CounterVec
	StepsSkipped  *prometheus.CounterVec
	PlaybackRuns  prometheus.Counter
	PathLookups   *prometheus.CounterVec
}

// NewCollector creates and registers the counters.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		StepsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "script_steps_executed_total",
			Help:      "Script steps executed, by command.",
		}, []string{"command"}),
		StepsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "script_steps_skipped_total",
			Help:      "Script steps skipped, by reason.",
		}, []string{"reason"}),
		PlaybackRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "playback_runs_total",
			Help:      "Timed playbacks started.",
		}),
		PathLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "path_lookups_total",
			Help:      "A* lookups, by memo result (hit or miss).",
		}, []string{"result"}),
	}
	c.registry.MustRegister(c.StepsExecuted, c.StepsSkipped, c.PlaybackRuns, c.PathLookups)
	return c
}

// StepExecuted counts a step that ran.
func (c *Collector) StepExecuted(command string) {
	c.StepsExecuted.WithLabelValues(command).Inc()
}

// StepSkipped counts a step that was skipped.
func (c *Collector) StepSkipped(reason string) {
	c.StepsSkipped.WithLabelValues(reason).Inc()
}

// PlaybackStarted counts a playback run.
func (c *Collector) PlaybackStarted() {
	c.PlaybackRuns.Inc()
}

// PathLookup counts an A* memo hit or miss. Pass it to graph.WithCacheObserver.
func (c *Collector) PathLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.PathLookups.WithLabelValues(result).Inc()
}

// Registry returns the registry holding the counters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
