// Package catalog resolves cube datasets to their physical partitions. The
// stats pipeline only ever reads catalog metadata; dataset lifecycle is owned
// elsewhere.
package catalog

import "context"

// RowsUnknown marks a partition file whose row count is not cheaply available.
const RowsUnknown int64 = -1

// PartitionFile is one stored object belonging to a partition.
type PartitionFile struct {
	// Key addresses the object in the store.
	Key string

	// Rows is the number of rows in the file, or RowsUnknown (negative) when
	// the catalog does not carry a count. Reading the payload to find out is
	// deliberately out of bounds for statistics collection.
	Rows int64
}

// Partition is one physical partition of a dataset: the smallest scannable
// storage grouping, aligned by the dataset's partition-key columns.
type Partition struct {
	// Label identifies the partition within its dataset. For partitioned
	// datasets this is the partition-key path (e.g. "p=2024/q=1").
	Label string

	Files []PartitionFile
}

// DatasetMetadata describes one dataset of a cube.
type DatasetMetadata struct {
	// UUID is the dataset uuid, `<cube uuid prefix>++<dataset id>`.
	UUID string

	// MetadataVersion is the metadata format version the dataset was written with.
	MetadataVersion int

	// PartitionKeys are the columns the dataset is physically partitioned by.
	PartitionKeys []string

	// Columns are all physical columns of the dataset.
	Columns []string
}

// Dataset is a handle to one dataset's catalog metadata.
type Dataset interface {
	// Metadata returns the dataset's descriptive metadata.
	Metadata() DatasetMetadata

	// Partitions enumerates the dataset's physical partitions, grouped by the
	// dataset's partition keys. The result must be deterministic for a fixed
	// dataset state.
	Partitions(ctx context.Context) ([]Partition, error)
}

// Catalog resolves all datasets of one cube.
type Catalog interface {
	// Datasets returns the cube's datasets keyed by dataset id.
	Datasets(ctx context.Context) (map[string]Dataset, error)
}
