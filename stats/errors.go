package stats

import "fmt"

// CatalogError reports that a dataset's partitions could not be enumerated.
// It is fatal for the whole statistics run.
type CatalogError struct {
	DatasetID string
	Err       error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("failed to enumerate partitions of dataset %s: %v", e.DatasetID, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// StorageUnavailableError reports that the storage backend could not be
// resolved for a block. It is fatal for that block and propagates unretried.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage backend unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// PartitionReadError reports that the metric lookup for a single partition
// file failed. It fails the containing block so statistics are never silently
// incomplete.
type PartitionReadError struct {
	DatasetID string
	Label     string
	Key       string
	Err       error
}

func (e *PartitionReadError) Error() string {
	return fmt.Sprintf("failed to read partition %s of dataset %s (key %s): %v", e.Label, e.DatasetID, e.Key, e.Err)
}

func (e *PartitionReadError) Unwrap() error { return e.Err }

// InvalidStatsValueError reports a negative metric value handed to the
// reducer. Counts and byte sizes are inherently non-negative, so a negative
// contribution signals upstream corruption rather than a legitimate value.
type InvalidStatsValueError struct {
	DatasetID string
	Metric    string
	Value     int64
}

func (e *InvalidStatsValueError) Error() string {
	return fmt.Sprintf("invalid stats value %d for metric %s of dataset %s", e.Value, e.Metric, e.DatasetID)
}
