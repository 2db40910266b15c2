// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for Groundline.
//
// # Description
//
// This package implements Prometheus metrics for monitoring grounded answer
// streaming. Metrics include:
//   - Stream counters (by status)
//   - Emitted stream events (by wire type)
//   - Citation resolution outcomes (resolved vs degraded, by kind)
//   - Stream duration histograms and active stream gauge
//   - Session lifecycle counters (resets, idle expirations)
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "groundline"

// Subsystem for answer streaming metrics
const streamingSubsystem = "streaming"

// StreamingMetrics holds all Prometheus metrics for answer streaming.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring stream throughput
// and citation grounding quality. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - StreamsTotal: Counter of answer streams by final status
//   - StreamEventsTotal: Counter of emitted stream events by wire type
//   - CitationsTotal: Counter of citation candidates by kind and outcome
//   - StreamDurationSeconds: Histogram of total stream duration
//   - ActiveStreams: Gauge of currently active streams
//   - SessionResetsTotal: Counter of explicit session resets
//   - SessionsExpiredTotal: Counter of sessions removed by the idle sweeper
//
// # Thread Safety
//
// All operations are thread-safe.
type StreamingMetrics struct {
	// StreamsTotal counts answer streams by status (success, error).
	StreamsTotal *prometheus.CounterVec

	// StreamEventsTotal counts emitted events by wire type
	// (text, axiom_citation, reality_citation, error).
	StreamEventsTotal *prometheus.CounterVec

	// CitationsTotal counts citation candidates by kind (axiom, reality)
	// and outcome (resolved, degraded).
	CitationsTotal *prometheus.CounterVec

	// StreamDurationSeconds measures total stream duration by status.
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active answer streams.
	ActiveStreams prometheus.Gauge

	// SessionResetsTotal counts explicit session reset requests.
	SessionResetsTotal prometheus.Counter

	// SessionsExpiredTotal counts sessions evicted by the idle sweeper.
	SessionsExpiredTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of StreamingMetrics.
// Initialized by InitMetrics(). All helper methods are nil-safe so code
// paths exercised in tests do not require initialization.
var DefaultMetrics *StreamingMetrics

var initMetricsOnce sync.Once

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Outputs
//
//   - *StreamingMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Registration happens once per process; later calls return the
//     existing instance.
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *StreamingMetrics {
	initMetricsOnce.Do(registerMetrics)
	return DefaultMetrics
}

func registerMetrics() {
	DefaultMetrics = &StreamingMetrics{
		StreamsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "streams_total",
				Help:      "Total number of answer streams by status",
			},
			[]string{"status"},
		),

		StreamEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "events_total",
				Help:      "Total emitted stream events by wire type",
			},
			[]string{"type"},
		),

		CitationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "citations_total",
				Help:      "Citation candidates by kind and resolution outcome",
			},
			[]string{"kind", "outcome"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active answer streams",
			},
		),

		SessionResetsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "resets_total",
				Help:      "Total explicit session reset requests",
			},
		),

		SessionsExpiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "expired_total",
				Help:      "Total sessions evicted by the idle sweeper",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordStream records a completed answer stream.
//
// # Inputs
//
//   - success: Whether the stream completed without a model failure.
//   - seconds: Total stream duration in seconds.
func (m *StreamingMetrics) RecordStream(success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamsTotal.WithLabelValues(status).Inc()
	m.StreamDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordEvent records one emitted stream event by wire type.
func (m *StreamingMetrics) RecordEvent(wireType string) {
	if m == nil {
		return
	}
	m.StreamEventsTotal.WithLabelValues(wireType).Inc()
}

// RecordCitation records a citation candidate's resolution outcome.
//
// # Inputs
//
//   - kind: "axiom" or "reality".
//   - resolved: Whether the id was found in its store.
func (m *StreamingMetrics) RecordCitation(kind string, resolved bool) {
	if m == nil {
		return
	}
	outcome := "resolved"
	if !resolved {
		outcome = "degraded"
	}
	m.CitationsTotal.WithLabelValues(kind, outcome).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *StreamingMetrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *StreamingMetrics) StreamEnded() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}

// RecordSessionReset increments the session reset counter.
func (m *StreamingMetrics) RecordSessionReset() {
	if m == nil {
		return
	}
	m.SessionResetsTotal.Inc()
}

// RecordSessionsExpired adds to the expired session counter.
func (m *StreamingMetrics) RecordSessionsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpiredTotal.Add(float64(n))
}
