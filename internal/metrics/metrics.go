// Package metrics provides Prometheus metrics for the execution engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FiringsTotal counts completed node firings by component type.
	FiringsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "firings_total",
			Help:      "Total number of successful node firings by component type",
		},
		[]string{"type"},
	)

	// ErrorsTotal counts node failures by component type and error kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Total number of node failures by component type and kind",
		},
		[]string{"type", "kind"}, // "coercion", "input", "execution", "hook"
	)

	// FiringDuration tracks how long Execute takes.
	FiringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "firing_duration_seconds",
			Help:      "Duration of a component Execute call in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// NodesRunning tracks nodes currently inside Execute.
	NodesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "nodes_running",
			Help:      "Number of nodes currently executing",
		},
	)

	// ValuesDelivered counts values enqueued onto input ports.
	ValuesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "values_delivered_total",
			Help:      "Total number of values delivered across edges",
		},
	)

	// ExecutionsPerSecond is updated by the benchmark ticker.
	ExecutionsPerSecond = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowgrid",
			Subsystem: "engine",
			Name:      "executions_per_second",
			Help:      "Node firings per second over the last benchmark interval",
		},
	)

	// RunsTotal counts workspace runs by how they ended.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowgrid",
			Subsystem: "workspace",
			Name:      "runs_total",
			Help:      "Total number of workspace runs by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "timeout"
	)

	// WorkersActive tracks live node goroutines.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowgrid",
			Subsystem: "workspace",
			Name:      "workers_active",
			Help:      "Number of node worker goroutines currently alive",
		},
	)
)
