package cube

// Format-level constants. Changing any of these breaks compatibility with
// cubes already written to a store.
const (
	// MetadataVersion is the dataset metadata version cubes are based on.
	MetadataVersion = 4

	// MetadataStorageFormat is the storage format used for dataset metadata documents.
	MetadataStorageFormat = "json"

	// UUIDSeparator separates the cube uuid prefix from the dataset id in a
	// dataset uuid.
	UUIDSeparator = "++"

	// MetadataKeyIsSeed marks a dataset as the seed dataset of its cube.
	MetadataKeyIsSeed = "cube_is_seed"

	// MetadataKeyDimensionColumns stores the cube's dimension columns.
	MetadataKeyDimensionColumns = "cube_dimension_columns"

	// MetadataKeyPartitionColumns stores the cube's partition columns.
	MetadataKeyPartitionColumns = "cube_partition_columns"
)
