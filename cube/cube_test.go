package cube

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validCube() Cube {
	return Cube{
		UUIDPrefix:       "cube",
		DimensionColumns: []string{"x", "y"},
		PartitionColumns: []string{"p"},
		SeedDataset:      "seed",
	}
}

func TestCubeStats_Cube_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid cube", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validCube().Validate())
	})

	t.Run("missing uuid prefix", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.UUIDPrefix = ""
		err := c.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "uuid prefix is required")
	})

	t.Run("uuid prefix containing separator", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.UUIDPrefix = "cu" + UUIDSeparator + "be"
		require.Error(t, c.Validate())
	})

	t.Run("uuid prefix with invalid characters", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.UUIDPrefix = "cube/evil"
		require.Error(t, c.Validate())
	})

	t.Run("missing dimension columns", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.DimensionColumns = nil
		err := c.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "dimension column")
	})

	t.Run("missing seed dataset", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.SeedDataset = ""
		require.Error(t, c.Validate())
	})

	t.Run("dimension column doubling as partition column", func(t *testing.T) {
		t.Parallel()
		c := validCube()
		c.PartitionColumns = []string{"x"}
		err := c.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), `"x"`)
	})
}

// The separator must itself be a valid uuid charset sequence so that derived
// dataset uuids survive the same validation as their components.
func TestCubeStats_Cube_SeparatorIsValidUUIDComponent(t *testing.T) {
	t.Parallel()
	require.True(t, ValidUUIDComponent(UUIDSeparator))
}

func TestCubeStats_Cube_DatasetUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	c := validCube()
	uuid := c.DatasetUUID("enrich")
	require.Equal(t, "cube++enrich", uuid)

	prefix, id, err := SplitDatasetUUID(uuid)
	require.NoError(t, err)
	require.Equal(t, "cube", prefix)
	require.Equal(t, "enrich", id)
}

func TestCubeStats_Cube_SplitDatasetUUID(t *testing.T) {
	t.Parallel()

	t.Run("missing separator", func(t *testing.T) {
		t.Parallel()
		_, _, err := SplitDatasetUUID("plain")
		require.Error(t, err)
	})

	t.Run("repeated separator", func(t *testing.T) {
		t.Parallel()
		_, _, err := SplitDatasetUUID("a++b++c")
		require.Error(t, err)
	})
}
