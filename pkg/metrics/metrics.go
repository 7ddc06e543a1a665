// Copyright 2025 Alibaba Group Holding Ltd.
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

// Package metrics provides Prometheus collectors for fixture generation, mutation and indexing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generatedEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treegen_generated_entries_total",
			Help: "Total number of files and directories created by generation passes",
		},
		[]string{"kind"},
	)

	generatedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treegen_generated_bytes_total",
			Help: "Total bytes written by generation passes",
		},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treegen_mutations_total",
			Help: "Total number of applied mutations",
		},
		[]string{"operation", "kind"},
	)

	indexEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "treegen_index_entries",
			Help: "Number of entries in the most recent index",
		},
		[]string{"kind"},
	)

	indexDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "treegen_index_duration_seconds",
			Help:    "Time to walk and index the fixture tree",
			Buckets: prometheus.DefBuckets,
		},
	)

	cyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treegen_cycles_total",
			Help: "Total number of completed mutate and re-index cycles",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treegen_harness_uploads_total",
			Help: "Total number of fixture uploads to the file server under test",
		},
		[]string{"status"},
	)

	fileServerBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treegen_fileserver_bytes_total",
			Help: "Bytes moved by the reference file server",
		},
		[]string{"direction"},
	)
)

// RecordGeneration records the outcome of a generation pass.
func RecordGeneration(dirs, files int, bytes int64) {
	generatedEntriesTotal.WithLabelValues("directory").Add(float64(dirs))
	generatedEntriesTotal.WithLabelValues("file").Add(float64(files))
	generatedBytesTotal.Add(float64(bytes))
}

// RecordMutation records one applied mutation.
func RecordMutation(operation, kind string) {
	mutationsTotal.WithLabelValues(operation, kind).Inc()
}

// RecordIndex records the size and duration of an index pass.
func RecordIndex(dirs, files int, duration time.Duration) {
	indexEntries.WithLabelValues("directory").Set(float64(dirs))
	indexEntries.WithLabelValues("file").Set(float64(files))
	indexDuration.Observe(duration.Seconds())
}

func RecordCycle() {
	cyclesTotal.Inc()
}

func RecordUpload(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
}

// RecordFileServerTransfer records bytes received ("upload") or served ("download").
func RecordFileServerTransfer(direction string, n int64) {
	fileServerBytes.WithLabelValues(direction).Add(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
