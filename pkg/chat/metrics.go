// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains Prometheus metrics for attachment retrieval. Every
// attempt, retry, and failure kind is counted so production issues can be
// diagnosed from metrics instead of scraping free-text logs.
package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace    = "dergichat"
	attachmentSubsystem = "attachment"
)

// Fetch path label values.
const (
	fetchPathPrimary  = "primary"
	fetchPathFallback = "fallback"
)

// Fetch failure kind label values.
const (
	failureKindTransport = "transport"
	failureKindStatus    = "status"
	failureKindDecode    = "decode"
	failureKindPayload   = "payload"
)

// FetchMetrics holds Prometheus metrics for attachment retrieval.
//
// A nil *FetchMetrics is valid and disables instrumentation; all methods
// are nil-safe so the Fetcher never has to branch on configuration.
type FetchMetrics struct {
	// AttemptsTotal counts retrieval calls by path and outcome.
	// Labels: path (primary, fallback), status (success, error)
	AttemptsTotal *prometheus.CounterVec

	// RetriesTotal counts primary-path retries after a failed attempt.
	RetriesTotal prometheus.Counter

	// FailuresTotal counts failed attempts by kind.
	// Labels: kind (transport, status, decode, payload)
	FailuresTotal *prometheus.CounterVec

	// BytesFetched observes decoded attachment sizes on success.
	BytesFetched prometheus.Histogram
}

// NewFetchMetrics creates and registers fetch metrics on reg.
//
// Pass prometheus.DefaultRegisterer in binaries; tests use a private
// registry to avoid duplicate-registration panics.
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	factory := promauto.With(reg)

	return &FetchMetrics{
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: attachmentSubsystem,
			Name:      "fetch_attempts_total",
			Help:      "Attachment retrieval attempts by path and outcome.",
		}, []string{"path", "status"}),

		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: attachmentSubsystem,
			Name:      "fetch_retries_total",
			Help:      "Primary-path retries after a failed attempt.",
		}),

		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: attachmentSubsystem,
			Name:      "fetch_failures_total",
			Help:      "Failed retrieval attempts by failure kind.",
		}, []string{"kind"}),

		BytesFetched: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: attachmentSubsystem,
			Name:      "fetch_bytes",
			Help:      "Decoded attachment sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
}

func (m *FetchMetrics) recordAttempt(path, status string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(path, status).Inc()
}

func (m *FetchMetrics) recordRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *FetchMetrics) recordFailure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

func (m *FetchMetrics) recordBytes(n int64) {
	if m == nil {
		return
	}
	m.BytesFetched.Observe(float64(n))
}
