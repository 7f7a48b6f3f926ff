package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

// QueueSource is the part of *queue.Manager the collector reads.
type QueueSource interface {
	Subscribe(fn func(queue.Completion)) (unsubscribe func())
	Status() queue.QueueStatus
}

// ExecutorSource is the part of *pattern.Executor the collector reads.
type ExecutorSource interface {
	Subscribe(fn func(pattern.Event)) (unsubscribe func())
	Stats() pattern.Stats
}

// WatchQueue subscribes to completions and exports live queue gauges.
// Call it once per collector.
func (c *Collector) WatchQueue(q QueueSource) (unsubscribe func(), err error) {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Items waiting in the queue",
		}, func() float64 { return float64(q.Status().Pending) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_processing",
			Help:      "1 while an item is in flight",
		}, func() float64 { return boolGauge(q.Status().Active) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_paused",
			Help:      "1 while dispatching is paused",
		}, func() float64 { return boolGauge(q.Status().Paused) }),
	}
	for _, g := range gauges {
		if err := c.registry.Register(g); err != nil {
			return nil, err
		}
	}
	return q.Subscribe(c.ObserveCompletion), nil
}

// WatchExecutor subscribes to execution events and exports the running count.
// Call it once per collector.
func (c *Collector) WatchExecutor(ex ExecutorSource) (unsubscribe func(), err error) {
	running := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pattern_executions_running",
		Help:      "Pattern executions currently running",
	}, func() float64 { return float64(ex.Stats().Running) })
	if err := c.registry.Register(running); err != nil {
		return nil, err
	}
	return ex.Subscribe(c.ObserveExecution), nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
