package consistency

import (
	"testing"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/cube"
	"github.com/stretchr/testify/require"
)

func testCube() cube.Cube {
	return cube.Cube{
		UUIDPrefix:       "cube",
		DimensionColumns: []string{"x", "y"},
		PartitionColumns: []string{"p"},
		SeedDataset:      "seed",
	}
}

func dataset(c cube.Cube, id string, columns []string, partitionKeys []string) catalog.Dataset {
	return &catalog.StaticDataset{Meta: catalog.DatasetMetadata{
		UUID:            c.DatasetUUID(id),
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   partitionKeys,
		Columns:         columns,
	}}
}

func validDatasets(c cube.Cube) map[string]catalog.Dataset {
	return map[string]catalog.Dataset{
		"seed":   dataset(c, "seed", []string{"x", "y", "p", "v1"}, []string{"p"}),
		"enrich": dataset(c, "enrich", []string{"x", "p", "v2"}, []string{"p"}),
	}
}

func TestCubeStats_Consistency_ValidDatasets(t *testing.T) {
	t.Parallel()
	c := testCube()
	require.NoError(t, CheckDatasets(validDatasets(c), c))
}

func TestCubeStats_Consistency_EmptyInputMissesSeed(t *testing.T) {
	t.Parallel()
	err := CheckDatasets(nil, testCube())
	require.Error(t, err)
	require.Contains(t, err.Error(), `seed dataset "seed" is missing`)
}

func TestCubeStats_Consistency_MissingSeed(t *testing.T) {
	t.Parallel()
	c := testCube()
	datasets := validDatasets(c)
	delete(datasets, "seed")

	err := CheckDatasets(datasets, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), `seed dataset "seed" is missing`)
}

func TestCubeStats_Consistency_WrongMetadataVersion(t *testing.T) {
	t.Parallel()
	c := testCube()
	datasets := validDatasets(c)
	datasets["enrich"] = &catalog.StaticDataset{Meta: catalog.DatasetMetadata{
		UUID:            c.DatasetUUID("enrich"),
		MetadataVersion: 3,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v2"},
	}}

	err := CheckDatasets(datasets, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "metadata version 3")
}

func TestCubeStats_Consistency_WrongUUID(t *testing.T) {
	t.Parallel()
	c := testCube()
	datasets := validDatasets(c)
	datasets["enrich"] = &catalog.StaticDataset{Meta: catalog.DatasetMetadata{
		UUID:            "othercube++enrich",
		MetadataVersion: cube.MetadataVersion,
		PartitionKeys:   []string{"p"},
		Columns:         []string{"x", "p", "v2"},
	}}

	err := CheckDatasets(datasets, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "othercube++enrich")
}

func TestCubeStats_Consistency_PartitionKeys(t *testing.T) {
	t.Parallel()
	c := testCube()

	t.Run("wrong keys", func(t *testing.T) {
		t.Parallel()
		datasets := validDatasets(c)
		datasets["seed"] = dataset(c, "seed", []string{"x", "y", "p", "v1"}, nil)

		err := CheckDatasets(datasets, c)
		require.Error(t, err)
		require.Contains(t, err.Error(), "is partitioned by []")
	})

	t.Run("dataset without the partition column needs no keys", func(t *testing.T) {
		t.Parallel()
		datasets := validDatasets(c)
		datasets["enrich"] = dataset(c, "enrich", []string{"x", "v2"}, nil)
		require.NoError(t, CheckDatasets(datasets, c))
	})
}

func TestCubeStats_Consistency_DimensionColumns(t *testing.T) {
	t.Parallel()
	c := testCube()

	t.Run("seed missing a dimension column", func(t *testing.T) {
		t.Parallel()
		datasets := validDatasets(c)
		datasets["seed"] = dataset(c, "seed", []string{"x", "p", "v1"}, []string{"p"})

		err := CheckDatasets(datasets, c)
		require.Error(t, err)
		require.Contains(t, err.Error(), `missing dimension column "y"`)
	})

	t.Run("non-seed without any dimension column", func(t *testing.T) {
		t.Parallel()
		datasets := validDatasets(c)
		datasets["enrich"] = dataset(c, "enrich", []string{"p", "v2"}, []string{"p"})

		err := CheckDatasets(datasets, c)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no dimension column")
	})
}

func TestCubeStats_Consistency_PayloadOverlap(t *testing.T) {
	t.Parallel()
	c := testCube()
	datasets := validDatasets(c)
	datasets["enrich"] = dataset(c, "enrich", []string{"x", "p", "v1"}, []string{"p"})

	err := CheckDatasets(datasets, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), `payload column "v1" is present in multiple datasets: enrich, seed`)
}

func TestCubeStats_Consistency_ReportsAllViolationsAtOnce(t *testing.T) {
	t.Parallel()
	c := testCube()
	datasets := map[string]catalog.Dataset{
		"enrich": &catalog.StaticDataset{Meta: catalog.DatasetMetadata{
			UUID:            "wrong",
			MetadataVersion: 2,
			Columns:         []string{"v2"},
		}},
	}

	err := CheckDatasets(datasets, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "seed dataset")
	require.Contains(t, err.Error(), "metadata version 2")
	require.Contains(t, err.Error(), `uuid "wrong"`)
	require.Contains(t, err.Error(), "no dimension column")
}
