package queue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the queue's prometheus collectors. Each queue registers into
// its own registry so tests can build queues freely.
type metrics struct {
	registry       *prometheus.Registry
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	depth          prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskd_actions_total",
				Help: "Total number of executed actions",
			},
			[]string{"action", "status"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskd_action_duration_seconds",
				Help:    "Action execution duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"action"},
		),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deskd_queue_depth",
			Help: "Number of admitted actions waiting to start",
		}),
	}

	m.registry.MustRegister(m.actionsTotal, m.actionDuration, m.depth)
	return m
}

// Gatherer exposes the queue's metrics registry for the /metrics endpoint.
func (q *Queue) Gatherer() prometheus.Gatherer {
	return q.metrics.registry
}
