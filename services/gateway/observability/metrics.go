// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the gateway.
//
// # Description
//
// Metrics cover the document retrieval endpoints: request counts and
// latency by endpoint, failures by kind, and total object bytes served
// inline. Exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "dergichat"
const gatewaySubsystem = "gateway"

// =============================================================================
// Label Values
// =============================================================================

// Endpoint labels a retrieval endpoint on gateway metrics.
type Endpoint string

const (
	// EndpointDownload is the inline data-URL endpoint.
	EndpointDownload Endpoint = "download"

	// EndpointRedirect is the presigned-link endpoint.
	EndpointRedirect Endpoint = "download_redirect"
)

// FailureKind labels why a retrieval request failed.
type FailureKind string

const (
	// FailureConfig indicates the object store was never configured.
	FailureConfig FailureKind = "config"

	// FailureValidation indicates a malformed request body.
	FailureValidation FailureKind = "validation"

	// FailureNotFound indicates the key does not exist in the bucket.
	FailureNotFound FailureKind = "not_found"

	// FailureEmptyObject indicates a zero-byte object.
	FailureEmptyObject FailureKind = "empty_object"

	// FailureStore indicates any other object-store fault.
	FailureStore FailureKind = "store"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// GatewayMetrics holds all Prometheus metrics for the retrieval endpoints.
//
// A nil *GatewayMetrics is valid: all record methods become no-ops, so
// handlers never need to branch on whether metrics are enabled.
type GatewayMetrics struct {
	// RequestsTotal counts successful retrieval requests by endpoint.
	RequestsTotal *prometheus.CounterVec

	// FailuresTotal counts failed retrieval requests by endpoint and kind.
	FailuresTotal *prometheus.CounterVec

	// RequestDurationSeconds measures successful request latency by endpoint.
	RequestDurationSeconds *prometheus.HistogramVec

	// ObjectBytesTotal counts object bytes served inline.
	ObjectBytesTotal prometheus.Counter
}

// NewGatewayMetrics creates and registers the gateway metrics on reg.
// Pass prometheus.DefaultRegisterer for production use or a fresh
// registry in tests.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)

	return &GatewayMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Successful retrieval requests by endpoint",
			},
			[]string{"endpoint"},
		),

		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "failures_total",
				Help:      "Failed retrieval requests by endpoint and kind",
			},
			[]string{"endpoint", "kind"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_duration_seconds",
				Help:      "Successful retrieval request latency by endpoint",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"endpoint"},
		),

		ObjectBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "object_bytes_total",
				Help:      "Total object bytes served inline as data URLs",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a successful retrieval request and its latency.
func (m *GatewayMetrics) RecordRequest(endpoint Endpoint, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(endpoint)).Inc()
	m.RequestDurationSeconds.WithLabelValues(string(endpoint)).Observe(elapsed.Seconds())
}

// RecordFailure records a failed retrieval request.
func (m *GatewayMetrics) RecordFailure(endpoint Endpoint, kind FailureKind) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(string(endpoint), string(kind)).Inc()
}

// RecordObjectBytes records bytes served inline.
func (m *GatewayMetrics) RecordObjectBytes(n int64) {
	if m == nil {
		return
	}
	m.ObjectBytesTotal.Add(float64(n))
}
