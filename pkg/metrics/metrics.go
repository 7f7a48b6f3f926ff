// Package metrics exposes Prometheus collectors for the command queue and the
// pattern executor. Collectors live on their own registry so tests and
// embedding applications never collide with the global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

const namespace = "hapticqueue"

// Collector holds every metric the daemon exports.
type Collector struct {
	registry *prometheus.Registry

	Commands          *prometheus.CounterVec
	CommandRetries    prometheus.Counter
	CommandDuration   *prometheus.HistogramVec
	Executions        *prometheus.CounterVec
	ExecutionsStarted prometheus.Counter
	ExecutionCommands prometheus.Histogram
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Queue items that reached a terminal status",
		}, []string{"kind", "status"}),
		CommandRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_retries_total",
			Help:      "Send retries performed for finished queue items",
		}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_processing_seconds",
			Help:      "Time from dispatch to completion, including pacing",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_executions_total",
			Help:      "Pattern executions that reached a terminal status",
		}, []string{"pattern", "status"}),
		ExecutionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_executions_started_total",
			Help:      "Pattern executions started",
		}),
		ExecutionCommands: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pattern_execution_commands",
			Help:      "Commands issued per finished pattern execution",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveCompletion records a finished queue item.
func (c *Collector) ObserveCompletion(ev queue.Completion) {
	kind := ev.Item.Command.Kind().String()
	c.Commands.WithLabelValues(kind, string(ev.Item.Status)).Inc()
	if ev.Item.Retries > 0 {
		c.CommandRetries.Add(float64(ev.Item.Retries))
	}
	if ev.Item.StartedAt != nil && ev.Item.FinishedAt != nil {
		c.CommandDuration.WithLabelValues(kind).Observe(ev.Item.FinishedAt.Sub(*ev.Item.StartedAt).Seconds())
	}
}

// ObserveExecution records an execution lifecycle event.
func (c *Collector) ObserveExecution(ev pattern.Event) {
	if ev.Type == pattern.EventStarted {
		c.ExecutionsStarted.Inc()
		return
	}
	c.Executions.WithLabelValues(ev.Execution.PatternName, string(ev.Execution.Status)).Inc()
	c.ExecutionCommands.Observe(float64(ev.Execution.CommandsIssued))
}
