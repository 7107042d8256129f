// Package metrics records per-action request counters and latency histograms
// for Prometheus scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/flowkit/types"
)

// Collector aggregates execution metrics for every action in a registry.
type Collector struct {
	requestsTotal  *prometheus.CounterVec
	latencySeconds *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector registers the action metric families under namespace on reg.
// A nil reg registers on a private registry, which keeps repeated
// construction (tests, embedded registries) collision-free.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_requests_total",
			Help:      "Total number of action executions",
		},
		[]string{"name", "flow_name", "path", "status", "error"},
	)

	c.latencySeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Action execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"name", "flow_name", "path"},
	)

	return c
}

// RecordRequest records one completed action execution. The error label is
// the canonical status name for failures and empty for successes.
func (c *Collector) RecordRequest(name, flowName, path string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	errLabel := ""
	if err != nil {
		status = "error"
		errLabel = string(types.StatusOf(err))
	}
	c.requestsTotal.WithLabelValues(name, flowName, path, status, errLabel).Inc()
	c.latencySeconds.WithLabelValues(name, flowName, path).Observe(elapsed.Seconds())
}
