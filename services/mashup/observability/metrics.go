// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// mashup service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the context
// aggregation pipeline. Metrics include:
//   - Request counters (by endpoint and status)
//   - Upstream query counters and latency histograms (by service)
//   - Session cache outcomes (hit, stub, miss)
//   - Result item counters (parsed vs. surviving deduplication)
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for mashup pipeline metrics
const mashupSubsystem = "mashup"

// PipelineMetrics holds all Prometheus metrics for the mashup pipeline.
//
// # Description
//
// Provides counters and histograms for monitoring request volume,
// upstream behavior and cache effectiveness. Initialize once at startup
// via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type PipelineMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (decorate, primary, support, login, personal),
	// status (success, error)
	RequestsTotal *prometheus.CounterVec

	// UpstreamQueriesTotal counts queries sent to upstream services.
	// Labels: service, status (success, error)
	UpstreamQueriesTotal *prometheus.CounterVec

	// UpstreamQueryDurationSeconds measures upstream query latency.
	// Labels: service
	UpstreamQueryDurationSeconds *prometheus.HistogramVec

	// SessionLookupsTotal counts session cache outcomes.
	// Labels: outcome (hit, stub, miss)
	SessionLookupsTotal *prometheus.CounterVec

	// ItemsTotal counts result items at pipeline stages.
	// Labels: stage (parsed, aggregated)
	ItemsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: mashupSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		UpstreamQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: mashupSubsystem,
				Name:      "upstream_queries_total",
				Help:      "Total upstream service queries by service and status",
			},
			[]string{"service", "status"},
		),

		UpstreamQueryDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: mashupSubsystem,
				Name:      "upstream_query_duration_seconds",
				Help:      "Upstream query latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0},
			},
			[]string{"service"},
		),

		SessionLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: mashupSubsystem,
				Name:      "session_lookups_total",
				Help:      "Session cache lookups by outcome",
			},
			[]string{"outcome"},
		),

		ItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: mashupSubsystem,
				Name:      "items_total",
				Help:      "Result items counted at pipeline stages",
			},
			[]string{"stage"},
		),
	}

	return DefaultMetrics
}

// Endpoint represents an API endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointDecorate is the context decoration endpoint.
	EndpointDecorate Endpoint = "decorate"

	// EndpointPrimary is the primary data endpoint.
	EndpointPrimary Endpoint = "primary"

	// EndpointSupport is the support data endpoint.
	EndpointSupport Endpoint = "support"

	// EndpointLogin is the login endpoint.
	EndpointLogin Endpoint = "login"

	// EndpointPersonal is the personal data endpoint.
	EndpointPersonal Endpoint = "personal"
)

// RecordRequest records a completed API request.
func (m *PipelineMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordUpstreamQuery records one upstream query with its latency.
func (m *PipelineMetrics) RecordUpstreamQuery(service string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.UpstreamQueriesTotal.WithLabelValues(service, status).Inc()
	m.UpstreamQueryDurationSeconds.WithLabelValues(service).Observe(seconds)
}

// RecordSessionLookup records a session cache outcome.
func (m *PipelineMetrics) RecordSessionLookup(outcome string) {
	m.SessionLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordItems records item counts at a pipeline stage.
func (m *PipelineMetrics) RecordItems(stage string, count int) {
	m.ItemsTotal.WithLabelValues(stage).Add(float64(count))
}
