package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/datamesa/cubestats/cube"
	"github.com/datamesa/cubestats/storage"
)

// metadataSuffix is the key suffix of per-dataset metadata documents.
const metadataSuffix = ".by-dataset-metadata." + cube.MetadataStorageFormat

// KVMetadataKey returns the store key of a dataset's metadata document.
func KVMetadataKey(datasetUUID string) string {
	return datasetUUID + metadataSuffix
}

// KVDatasetDocument is the wire form of a dataset metadata document as stored
// next to the data. Partition labels map table names to object keys; row
// counts are optional.
type KVDatasetDocument struct {
	DatasetUUID     string                         `json:"dataset_uuid"`
	MetadataVersion int                            `json:"metadata_version"`
	PartitionKeys   []string                       `json:"partition_keys"`
	Columns         []string                       `json:"columns"`
	Metadata        map[string]any                 `json:"metadata,omitempty"`
	Partitions      map[string]KVPartitionDocument `json:"partitions"`
}

// KVPartitionDocument describes one stored partition inside a metadata document.
type KVPartitionDocument struct {
	Files     map[string]string `json:"files"`
	RowCounts map[string]int64  `json:"row_counts,omitempty"`
}

// KVCatalogConfig configures a KV-backed catalog.
type KVCatalogConfig struct {
	Logger *slog.Logger
	Store  storage.Store
	Cube   cube.Cube
}

func (cfg *KVCatalogConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if err := cfg.Cube.Validate(); err != nil {
		return fmt.Errorf("invalid cube: %w", err)
	}
	return nil
}

// KVCatalog reads dataset metadata documents straight from the object store
// holding the cube's data, the layout the original cube format uses.
type KVCatalog struct {
	log   *slog.Logger
	store storage.Store
	cube  cube.Cube
}

// NewKVCatalog returns a catalog over the metadata documents below the cube's
// uuid prefix.
func NewKVCatalog(cfg KVCatalogConfig) (*KVCatalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate kv catalog config: %w", err)
	}
	return &KVCatalog{log: cfg.Logger, store: cfg.Store, cube: cfg.Cube}, nil
}

// Datasets lists and parses all dataset metadata documents of the cube.
func (c *KVCatalog) Datasets(ctx context.Context) (map[string]Dataset, error) {
	prefix := c.cube.UUIDPrefix + cube.UUIDSeparator
	keys, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cube keys: %w", err)
	}

	datasets := make(map[string]Dataset)
	for _, key := range keys {
		if !strings.HasSuffix(key, metadataSuffix) {
			continue
		}
		datasetUUID := strings.TrimSuffix(key, metadataSuffix)
		_, datasetID, err := cube.SplitDatasetUUID(datasetUUID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset uuid from key %s: %w", key, err)
		}

		raw, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset metadata %s: %w", key, err)
		}
		var doc KVDatasetDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode dataset metadata %s: %w", key, err)
		}
		if doc.DatasetUUID != datasetUUID {
			return nil, fmt.Errorf("dataset metadata %s names uuid %q", key, doc.DatasetUUID)
		}

		c.log.Debug("loaded dataset metadata",
			"dataset", datasetID,
			"partitions", len(doc.Partitions),
		)
		datasets[datasetID] = &kvDataset{doc: doc}
	}
	return datasets, nil
}

// DiscoverKVCube reconstructs a cube definition from the metadata documents
// stored under the given uuid prefix. The seed dataset's document carries the
// cube's dimension and partition columns.
func DiscoverKVCube(ctx context.Context, store storage.Store, uuidPrefix string) (cube.Cube, error) {
	prefix := uuidPrefix + cube.UUIDSeparator
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return cube.Cube{}, fmt.Errorf("failed to list cube keys: %w", err)
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, metadataSuffix) {
			continue
		}
		raw, err := store.Get(ctx, key)
		if err != nil {
			return cube.Cube{}, fmt.Errorf("failed to read dataset metadata %s: %w", key, err)
		}
		var doc KVDatasetDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return cube.Cube{}, fmt.Errorf("failed to decode dataset metadata %s: %w", key, err)
		}
		if isSeed, _ := doc.Metadata[cube.MetadataKeyIsSeed].(bool); !isSeed {
			continue
		}

		_, datasetID, err := cube.SplitDatasetUUID(doc.DatasetUUID)
		if err != nil {
			return cube.Cube{}, fmt.Errorf("failed to parse seed dataset uuid %q: %w", doc.DatasetUUID, err)
		}
		dimensionColumns, err := metadataColumns(doc.Metadata, cube.MetadataKeyDimensionColumns)
		if err != nil {
			return cube.Cube{}, fmt.Errorf("seed dataset %s: %w", datasetID, err)
		}
		partitionColumns, err := metadataColumns(doc.Metadata, cube.MetadataKeyPartitionColumns)
		if err != nil {
			return cube.Cube{}, fmt.Errorf("seed dataset %s: %w", datasetID, err)
		}

		c := cube.Cube{
			UUIDPrefix:       uuidPrefix,
			DimensionColumns: dimensionColumns,
			PartitionColumns: partitionColumns,
			SeedDataset:      datasetID,
		}
		if err := c.Validate(); err != nil {
			return cube.Cube{}, fmt.Errorf("discovered cube is invalid: %w", err)
		}
		return c, nil
	}
	return cube.Cube{}, fmt.Errorf("no seed dataset found under uuid prefix %q", uuidPrefix)
}

// metadataColumns extracts a string-list metadata value as decoded from JSON.
func metadataColumns(metadata map[string]any, key string) ([]string, error) {
	raw, ok := metadata[key].([]any)
	if !ok {
		return nil, fmt.Errorf("metadata key %s is missing or not a list", key)
	}
	columns := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("metadata key %s contains a non-string entry", key)
		}
		columns = append(columns, s)
	}
	return columns, nil
}

type kvDataset struct {
	doc KVDatasetDocument
}

func (d *kvDataset) Metadata() DatasetMetadata {
	return DatasetMetadata{
		UUID:            d.doc.DatasetUUID,
		MetadataVersion: d.doc.MetadataVersion,
		PartitionKeys:   slices.Clone(d.doc.PartitionKeys),
		Columns:         slices.Clone(d.doc.Columns),
	}
}

// Partitions groups the stored partitions by their partition-key path so that
// partitions sharing physical grouping stay in one unit.
func (d *kvDataset) Partitions(ctx context.Context) ([]Partition, error) {
	groups := make(map[string][]PartitionFile)
	for label, part := range d.doc.Partitions {
		group := groupLabel(label, len(d.doc.PartitionKeys))
		for table, key := range part.Files {
			rows := RowsUnknown
			if count, ok := part.RowCounts[table]; ok {
				rows = count
			}
			groups[group] = append(groups[group], PartitionFile{Key: key, Rows: rows})
		}
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	partitions := make([]Partition, 0, len(labels))
	for _, label := range labels {
		files := groups[label]
		slices.SortFunc(files, func(a, b PartitionFile) int {
			return strings.Compare(a.Key, b.Key)
		})
		partitions = append(partitions, Partition{Label: label, Files: files})
	}
	return partitions, nil
}

// groupLabel reduces a partition label to its leading partition-key path
// components. Unpartitioned datasets keep one group per stored partition.
func groupLabel(label string, numKeys int) string {
	if numKeys == 0 {
		return label
	}
	parts := strings.Split(label, "/")
	if len(parts) <= numKeys {
		return label
	}
	return strings.Join(parts[:numKeys], "/")
}
