// Copyright 2025 The StarkEx DA Committee Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the committee's Prometheus instrumentation:
// batches processed, root mismatches, and per-iteration latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the validator loop reports to.
type Metrics struct {
	registry *prometheus.Registry

	BatchesValidated prometheus.Counter
	BatchesFailed    prometheus.Counter
	RootMismatches   *prometheus.CounterVec
	IterationLatency prometheus.Histogram
	CurrentBatchID   prometheus.Gauge
}

// New builds and registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.BatchesValidated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "committee_batches_validated_total",
		Help: "Total number of batches successfully validated and signed.",
	})
	m.BatchesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "committee_batches_failed_total",
		Help: "Total number of batch iterations that errored.",
	})
	m.RootMismatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "committee_root_mismatches_total",
		Help: "Total number of computed-vs-declared root mismatches, by object name.",
	}, []string{"object"})
	m.IterationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "committee_iteration_duration_seconds",
		Help:    "Wall-clock duration of a single batch validation iteration.",
		Buckets: prometheus.DefBuckets,
	})
	m.CurrentBatchID = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "committee_current_batch_id",
		Help: "The batch id the committee is currently processing or just processed.",
	})

	reg.MustRegister(
		m.BatchesValidated,
		m.BatchesFailed,
		m.RootMismatches,
		m.IterationLatency,
		m.CurrentBatchID,
	)
	return m
}

// Registry returns the Prometheus registry metrics were registered
// against, for mounting under an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
