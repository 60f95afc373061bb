package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datamesa/cubestats/cube"
	"github.com/datamesa/cubestats/internal/testutil"
	"github.com/datamesa/cubestats/storage"
)

func testCube() cube.Cube {
	return cube.Cube{
		UUIDPrefix:       "cube",
		DimensionColumns: []string{"x"},
		PartitionColumns: []string{"p"},
		SeedDataset:      "seed",
	}
}

func putDocument(t *testing.T, store storage.Store, doc KVDatasetDocument) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), KVMetadataKey(doc.DatasetUUID), raw))
}

func TestCubeStats_KVCatalog_ConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewKVCatalog(KVCatalogConfig{Store: storage.NewMemoryStore(), Cube: testCube()})
		require.Error(t, err)
		require.Contains(t, err.Error(), "logger is required")
	})

	t.Run("missing store", func(t *testing.T) {
		t.Parallel()
		_, err := NewKVCatalog(KVCatalogConfig{Logger: testutil.NewLogger(), Cube: testCube()})
		require.Error(t, err)
		require.Contains(t, err.Error(), "store is required")
	})

	t.Run("invalid cube", func(t *testing.T) {
		t.Parallel()
		_, err := NewKVCatalog(KVCatalogConfig{Logger: testutil.NewLogger(), Store: storage.NewMemoryStore()})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid cube")
	})
}

func TestCubeStats_KVCatalog_Datasets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++seed",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v1"},
		Partitions: map[string]KVPartitionDocument{
			"p=1/part-0": {
				Files:     map[string]string{"table": "cube++seed/table/p=1/part-0.parquet"},
				RowCounts: map[string]int64{"table": 10},
			},
			"p=2/part-0": {
				Files: map[string]string{"table": "cube++seed/table/p=2/part-0.parquet"},
			},
		},
	})
	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++enrich",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v2"},
		Partitions: map[string]KVPartitionDocument{
			"p=1/part-0": {
				Files: map[string]string{"table": "cube++enrich/table/p=1/part-0.parquet"},
			},
		},
	})
	// A different cube in the same store must stay invisible.
	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "other++seed",
		MetadataVersion: cube.MetadataVersion,
		Partitions:      map[string]KVPartitionDocument{},
	})
	// Data keys below the prefix must not be mistaken for metadata.
	require.NoError(t, store.Put(ctx, "cube++seed/table/p=1/part-0.parquet", []byte("x")))

	c, err := NewKVCatalog(KVCatalogConfig{
		Logger: testutil.NewLogger(),
		Store:  store,
		Cube:   testCube(),
	})
	require.NoError(t, err)

	datasets, err := c.Datasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 2)

	md := datasets["seed"].Metadata()
	require.Equal(t, "cube++seed", md.UUID)
	require.Equal(t, cube.MetadataVersion, md.MetadataVersion)
	require.Equal(t, []string{"p"}, md.PartitionKeys)

	parts, err := datasets["seed"].Partitions(ctx)
	require.NoError(t, err)
	require.Equal(t, []Partition{
		{Label: "p=1", Files: []PartitionFile{
			{Key: "cube++seed/table/p=1/part-0.parquet", Rows: 10},
		}},
		{Label: "p=2", Files: []PartitionFile{
			{Key: "cube++seed/table/p=2/part-0.parquet", Rows: RowsUnknown},
		}},
	}, parts)
}

func TestCubeStats_KVCatalog_GroupsByPartitionKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	// Two stored partitions under the same partition-key value must come back
	// as one physical unit.
	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++seed",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p"},
		Partitions: map[string]KVPartitionDocument{
			"p=1/part-0": {Files: map[string]string{"table": "k/b"}},
			"p=1/part-1": {Files: map[string]string{"table": "k/a"}},
			"p=2/part-0": {Files: map[string]string{"table": "k/c"}},
		},
	})

	c, err := NewKVCatalog(KVCatalogConfig{
		Logger: testutil.NewLogger(),
		Store:  store,
		Cube:   testCube(),
	})
	require.NoError(t, err)

	datasets, err := c.Datasets(ctx)
	require.NoError(t, err)

	parts, err := datasets["seed"].Partitions(ctx)
	require.NoError(t, err)
	require.Equal(t, []Partition{
		{Label: "p=1", Files: []PartitionFile{
			{Key: "k/a", Rows: RowsUnknown},
			{Key: "k/b", Rows: RowsUnknown},
		}},
		{Label: "p=2", Files: []PartitionFile{
			{Key: "k/c", Rows: RowsUnknown},
		}},
	}, parts)
}

func TestCubeStats_KVCatalog_UnpartitionedDataset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	c2 := testCube()
	c2.PartitionColumns = nil

	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++seed",
		MetadataVersion: cube.MetadataVersion,
		Columns:         []string{"x"},
		Partitions: map[string]KVPartitionDocument{
			"part-0": {Files: map[string]string{"table": "k/a"}},
			"part-1": {Files: map[string]string{"table": "k/b"}},
		},
	})

	c, err := NewKVCatalog(KVCatalogConfig{
		Logger: testutil.NewLogger(),
		Store:  store,
		Cube:   c2,
	})
	require.NoError(t, err)

	datasets, err := c.Datasets(ctx)
	require.NoError(t, err)
	parts, err := datasets["seed"].Partitions(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 2)
}

func TestCubeStats_KVCatalog_RejectsMismatchedUUID(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryStore()

	raw, err := json.Marshal(KVDatasetDocument{
		DatasetUUID:     "cube++other",
		MetadataVersion: cube.MetadataVersion,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), KVMetadataKey("cube++seed"), raw))

	c, err := NewKVCatalog(KVCatalogConfig{
		Logger: testutil.NewLogger(),
		Store:  store,
		Cube:   testCube(),
	})
	require.NoError(t, err)

	_, err = c.Datasets(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "names uuid")
}

func TestCubeStats_KVCatalog_DiscoverCube(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++seed",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v1"},
		Metadata: map[string]any{
			cube.MetadataKeyIsSeed:           true,
			cube.MetadataKeyDimensionColumns: []any{"x"},
			cube.MetadataKeyPartitionColumns: []any{"p"},
		},
	})
	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++enrich",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v2"},
	})

	c, err := DiscoverKVCube(ctx, store, "cube")
	require.NoError(t, err)
	require.Equal(t, testCube(), c)
}

func TestCubeStats_KVCatalog_DiscoverCube_NoSeed(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryStore()

	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++enrich",
		MetadataVersion: cube.MetadataVersion,
	})

	_, err := DiscoverKVCube(context.Background(), store, "cube")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no seed dataset")
}

func TestCubeStats_KVCatalog_DiscoverCube_BadColumns(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryStore()

	putDocument(t, store, KVDatasetDocument{
		DatasetUUID:     "cube++seed",
		MetadataVersion: cube.MetadataVersion,
		Metadata: map[string]any{
			cube.MetadataKeyIsSeed:           true,
			cube.MetadataKeyDimensionColumns: "x",
		},
	})

	_, err := DiscoverKVCube(context.Background(), store, "cube")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing or not a list")
}
