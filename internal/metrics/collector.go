package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records runtime metrics for one agent.
// A nil *Collector is a valid no-op recorder.
type Collector struct {
	// Heartbeat traffic
	heartbeatsTotal   *prometheus.CounterVec
	heartbeatDuration *prometheus.HistogramVec

	// Event dispatch
	eventsEmittedTotal *prometheus.CounterVec
	eventsDroppedTotal prometheus.Counter

	// State machine
	stateTransitionsTotal *prometheus.CounterVec

	// Topology
	dependenciesResolved prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates a collector registered against reg.
// Passing prometheus.DefaultRegisterer gives process-global metrics;
// tests pass their own registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.heartbeatsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeats sent, by type (fast/full) and result.",
		},
		[]string{"type", "result"},
	)

	c.heartbeatDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heartbeat_duration_seconds",
			Help:      "Heartbeat request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	c.eventsEmittedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Mesh events emitted to the host, by event type.",
		},
		[]string{"type"},
	)

	c.eventsDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Mesh events dropped because the host event queue was full.",
		},
	)

	c.stateTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Heartbeat state machine transitions.",
		},
		[]string{"from", "to"},
	)

	c.dependenciesResolved = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependencies_resolved",
			Help:      "Currently resolved dependencies in the topology.",
		},
	)

	return c
}

// RecordHeartbeat records one heartbeat attempt.
func (c *Collector) RecordHeartbeat(kind, result string, seconds float64) {
	if c == nil {
		return
	}
	c.heartbeatsTotal.WithLabelValues(kind, result).Inc()
	c.heartbeatDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordEventEmitted records one event delivered to the host queue.
func (c *Collector) RecordEventEmitted(eventType string) {
	if c == nil {
		return
	}
	c.eventsEmittedTotal.WithLabelValues(eventType).Inc()
}

// RecordEventDropped records one event dropped on a full queue.
func (c *Collector) RecordEventDropped() {
	if c == nil {
		return
	}
	c.eventsDroppedTotal.Inc()
}

// RecordStateTransition records a state machine transition.
func (c *Collector) RecordStateTransition(from, to string) {
	if c == nil {
		return
	}
	c.stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetDependenciesResolved records the current topology size.
func (c *Collector) SetDependenciesResolved(n int) {
	if c == nil {
		return
	}
	c.dependenciesResolved.Set(float64(n))
}
