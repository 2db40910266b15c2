// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// InitMetrics Tests
// ============================================================================

// Note: InitMetrics uses promauto, which registers with the default
// Prometheus registry. The sync.Once guard makes repeated calls safe, so
// every test can call InitMetrics and get the same instance.

func TestInitMetricsReturnsSingleton(t *testing.T) {
	first := InitMetrics()
	require.NotNil(t, first)
	require.Same(t, first, DefaultMetrics)

	second := InitMetrics()
	assert.Same(t, first, second, "repeated InitMetrics must return the same instance")
}

func TestInitMetricsFields(t *testing.T) {
	m := InitMetrics()

	assert.NotNil(t, m.StreamsTotal)
	assert.NotNil(t, m.StreamEventsTotal)
	assert.NotNil(t, m.CitationsTotal)
	assert.NotNil(t, m.StreamDurationSeconds)
	assert.NotNil(t, m.ActiveStreams)
	assert.NotNil(t, m.SessionResetsTotal)
	assert.NotNil(t, m.SessionsExpiredTotal)
}

// ============================================================================
// Nil Safety Tests
// ============================================================================

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *StreamingMetrics

	assert.NotPanics(t, func() {
		m.RecordStream(true, 1.5)
		m.RecordEvent("text")
		m.RecordCitation("axiom", true)
		m.StreamStarted()
		m.StreamEnded()
		m.RecordSessionReset()
		m.RecordSessionsExpired(3)
	})
}

// ============================================================================
// Recording Tests
// ============================================================================

func TestRecordStream(t *testing.T) {
	m := InitMetrics()

	before := testutil.ToFloat64(m.StreamsTotal.WithLabelValues("success"))
	m.RecordStream(true, 0.25)
	after := testutil.ToFloat64(m.StreamsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)

	beforeErr := testutil.ToFloat64(m.StreamsTotal.WithLabelValues("error"))
	m.RecordStream(false, 0.25)
	afterErr := testutil.ToFloat64(m.StreamsTotal.WithLabelValues("error"))
	assert.Equal(t, beforeErr+1, afterErr)
}

func TestRecordEventByWireType(t *testing.T) {
	m := InitMetrics()

	for _, wireType := range []string{"text", "axiom_citation", "reality_citation", "error"} {
		before := testutil.ToFloat64(m.StreamEventsTotal.WithLabelValues(wireType))
		m.RecordEvent(wireType)
		after := testutil.ToFloat64(m.StreamEventsTotal.WithLabelValues(wireType))
		assert.Equal(t, before+1, after, "wire type %s", wireType)
	}
}

func TestRecordCitationOutcomes(t *testing.T) {
	m := InitMetrics()

	cases := []struct {
		kind     string
		resolved bool
		outcome  string
	}{
		{"axiom", true, "resolved"},
		{"axiom", false, "degraded"},
		{"reality", true, "resolved"},
		{"reality", false, "degraded"},
	}

	for _, tc := range cases {
		before := testutil.ToFloat64(m.CitationsTotal.WithLabelValues(tc.kind, tc.outcome))
		m.RecordCitation(tc.kind, tc.resolved)
		after := testutil.ToFloat64(m.CitationsTotal.WithLabelValues(tc.kind, tc.outcome))
		assert.Equal(t, before+1, after, "%s/%s", tc.kind, tc.outcome)
	}
}

func TestActiveStreamsGaugeLifecycle(t *testing.T) {
	m := InitMetrics()

	base := testutil.ToFloat64(m.ActiveStreams)
	m.StreamStarted()
	m.StreamStarted()
	assert.Equal(t, base+2, testutil.ToFloat64(m.ActiveStreams))

	m.StreamEnded()
	m.StreamEnded()
	assert.Equal(t, base, testutil.ToFloat64(m.ActiveStreams))
}

func TestRecordSessionReset(t *testing.T) {
	m := InitMetrics()

	before := testutil.ToFloat64(m.SessionResetsTotal)
	m.RecordSessionReset()
	assert.Equal(t, before+1, testutil.ToFloat64(m.SessionResetsTotal))
}

func TestRecordSessionsExpired(t *testing.T) {
	m := InitMetrics()

	before := testutil.ToFloat64(m.SessionsExpiredTotal)
	m.RecordSessionsExpired(4)
	assert.Equal(t, before+4, testutil.ToFloat64(m.SessionsExpiredTotal))

	// Zero and negative counts are ignored.
	m.RecordSessionsExpired(0)
	m.RecordSessionsExpired(-2)
	assert.Equal(t, before+4, testutil.ToFloat64(m.SessionsExpiredTotal))
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestMetricsConcurrentSafety(t *testing.T) {
	m := InitMetrics()

	before := testutil.ToFloat64(m.StreamEventsTotal.WithLabelValues("text"))

	var wg sync.WaitGroup
	const workers = 10
	const perWorker = 50
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordEvent("text")
				m.StreamStarted()
				m.StreamEnded()
			}
		}()
	}
	wg.Wait()

	after := testutil.ToFloat64(m.StreamEventsTotal.WithLabelValues("text"))
	assert.Equal(t, before+float64(workers*perWorker), after)
}
