// Package metrics defines the prometheus collectors exported by cubestats.
// Registration happens on import via promauto; serving them is the caller's
// concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubestats_runs_total",
			Help: "Total number of cube statistics runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubestats_run_duration_seconds",
			Help:    "Duration of cube statistics runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~410s
		},
	)

	PartitionsLocatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cubestats_partitions_located_total",
			Help: "Total number of tagged partitions produced by the locator",
		},
	)

	BlocksCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubestats_blocks_collected_total",
			Help: "Total number of collected statistics blocks",
		},
		[]string{"status"},
	)

	BlockCollectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubestats_block_collect_duration_seconds",
			Help:    "Duration of per-block statistics collection",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01s to ~41s
		},
	)

	StorageRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubestats_storage_retries_total",
			Help: "Total number of retried object store operations",
		},
		[]string{"op"},
	)
)
