// Package stats computes aggregate physical-storage statistics for a cube as
// a scatter/gather pipeline: Locate expands datasets into tagged partitions,
// Collect summarizes one block of them against the object store, and Reduce
// merges any number of partial results. Collect outputs and Reduce outputs
// merge associatively and commutatively, so an external scheduler may shape
// the reduction tree however it likes and still obtain the single-threaded
// result.
package stats

import (
	"context"
	"maps"
	"slices"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/storage"
)

// Metric names emitted by Collect. All metrics are additive: summing partial
// values over any grouping of partitions yields the same total.
const (
	MetricNumberOfPartitions = "number_of_partitions"
	MetricNumberOfFiles      = "number_of_files"
	MetricTotalSizeBytes     = "total_size_bytes"
	MetricNumberOfRows       = "number_of_rows"
)

// DatasetStats maps metric names to non-negative values for one dataset.
type DatasetStats map[string]int64

// CubeStats maps dataset ids to their statistics. Treated as an immutable
// value at API boundaries: Collect and Reduce always return fresh maps and
// never modify their inputs.
type CubeStats map[string]DatasetStats

// Clone returns a deep copy.
func (s CubeStats) Clone() CubeStats {
	out := make(CubeStats, len(s))
	for datasetID, ds := range s {
		out[datasetID] = maps.Clone(ds)
	}
	return out
}

// add folds a single metric contribution into s, which must be owned by the
// caller. Absent entries count as zero.
func (s CubeStats) add(datasetID, metric string, value int64) {
	ds, ok := s[datasetID]
	if !ok {
		ds = make(DatasetStats)
		s[datasetID] = ds
	}
	ds[metric] += value
}

// TaggedPartition pairs a physical partition with its owning dataset id. It
// is the atomic unit of scheduling: the caller batches tagged partitions into
// blocks and hands each block to Collect.
type TaggedPartition struct {
	DatasetID string
	Partition catalog.Partition
}

// Locate expands every dataset of the cube into its tagged partitions. No
// filtering happens: every partition reachable from every handle is included
// exactly once, in deterministic order (dataset ids sorted, partitions in
// catalog order). Enumeration failure for any dataset aborts with a
// *CatalogError; partial results are never returned.
func Locate(ctx context.Context, datasets map[string]catalog.Dataset) ([]TaggedPartition, error) {
	tagged := []TaggedPartition{}
	for _, datasetID := range slices.Sorted(maps.Keys(datasets)) {
		partitions, err := datasets[datasetID].Partitions(ctx)
		if err != nil {
			return nil, &CatalogError{DatasetID: datasetID, Err: err}
		}
		for _, p := range partitions {
			tagged = append(tagged, TaggedPartition{DatasetID: datasetID, Partition: p})
		}
	}
	return tagged, nil
}

// Collect summarizes exactly the given block of tagged partitions. The store
// is resolved once per invocation through the provider, so distributed
// workers can construct a fresh backend connection locally. Any single failed
// metric lookup fails the whole block.
func Collect(ctx context.Context, block []TaggedPartition, provider storage.Provider) (CubeStats, error) {
	result := CubeStats{}
	if len(block) == 0 {
		return result, nil
	}

	store, err := provider.Store(ctx)
	if err != nil {
		return nil, &StorageUnavailableError{Err: err}
	}

	for _, tp := range block {
		stats, err := partitionStats(ctx, store, tp)
		if err != nil {
			return nil, err
		}
		for metric, value := range stats {
			result.add(tp.DatasetID, metric, value)
		}
	}
	return result, nil
}

// partitionStats computes the metrics of one physical partition. Sizes come
// from the store's stat lookup; row counts only from catalog metadata, and
// only when every file is missing a count does the row metric stay absent
// (absent merges as zero).
func partitionStats(ctx context.Context, store storage.Store, tp TaggedPartition) (DatasetStats, error) {
	stats := DatasetStats{
		MetricNumberOfPartitions: 1,
		MetricNumberOfFiles:      int64(len(tp.Partition.Files)),
		MetricTotalSizeBytes:     0,
	}
	rows := int64(0)
	rowsKnown := false
	for _, f := range tp.Partition.Files {
		info, err := store.Stat(ctx, f.Key)
		if err != nil {
			return nil, &PartitionReadError{
				DatasetID: tp.DatasetID,
				Label:     tp.Partition.Label,
				Key:       f.Key,
				Err:       err,
			}
		}
		stats[MetricTotalSizeBytes] += info.Size
		if f.Rows >= 0 {
			rows += f.Rows
			rowsKnown = true
		}
	}
	if rowsKnown {
		stats[MetricNumberOfRows] = rows
	}
	return stats, nil
}

// Reduce merges any number of statistics mappings (Collect outputs or prior
// Reduce outputs) into one. The merge starts from an empty mapping, treats
// absent entries as zero, tolerates heterogeneous metric sets, and never
// mutates its inputs. Negative values are rejected with an
// *InvalidStatsValueError.
func Reduce(results []CubeStats) (CubeStats, error) {
	merged := CubeStats{}
	for _, sub := range results {
		for datasetID, ds := range sub {
			for metric, value := range ds {
				if value < 0 {
					return nil, &InvalidStatsValueError{DatasetID: datasetID, Metric: metric, Value: value}
				}
				merged.add(datasetID, metric, value)
			}
		}
	}
	return merged, nil
}
