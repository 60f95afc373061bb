// Package cube defines the cube model: a named collection of partitioned
// datasets that share dimension columns and are stored side by side under a
// common uuid prefix in an object store.
package cube

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// uuidComponentRE matches valid uuid prefixes and dataset ids. The charset is
// part of the storage format contract (keys derived from these land in the
// object store verbatim).
var uuidComponentRE = regexp.MustCompile(`^[a-zA-Z0-9+\-_]{1,255}$`)

// Cube describes one cube: which datasets belong together, which columns span
// the dimension space, and how the data is physically partitioned. It is
// supplied by the caller and never mutated.
type Cube struct {
	// UUIDPrefix is the shared prefix of all dataset uuids of this cube.
	UUIDPrefix string

	// DimensionColumns are the columns spanning the cube's dimension space.
	DimensionColumns []string

	// PartitionColumns are the columns datasets are physically partitioned by.
	PartitionColumns []string

	// SeedDataset is the dataset id of the seed dataset.
	SeedDataset string
}

// Validate checks the cube definition for internal consistency.
func (c Cube) Validate() error {
	var errs []error
	if c.UUIDPrefix == "" {
		errs = append(errs, errors.New("uuid prefix is required"))
	} else if strings.Contains(c.UUIDPrefix, UUIDSeparator) {
		errs = append(errs, fmt.Errorf("uuid prefix %q must not contain the separator %q", c.UUIDPrefix, UUIDSeparator))
	} else if !ValidUUIDComponent(c.UUIDPrefix) {
		errs = append(errs, fmt.Errorf("uuid prefix %q contains invalid characters", c.UUIDPrefix))
	}
	if len(c.DimensionColumns) == 0 {
		errs = append(errs, errors.New("at least one dimension column is required"))
	}
	if c.SeedDataset == "" {
		errs = append(errs, errors.New("seed dataset is required"))
	} else if !ValidUUIDComponent(c.SeedDataset) {
		errs = append(errs, fmt.Errorf("seed dataset id %q contains invalid characters", c.SeedDataset))
	}
	for _, col := range c.PartitionColumns {
		if slices.Contains(c.DimensionColumns, col) {
			errs = append(errs, fmt.Errorf("column %q cannot be both a dimension and a partition column", col))
		}
	}
	return errors.Join(errs...)
}

// DatasetUUID returns the dataset uuid for a dataset id within this cube.
func (c Cube) DatasetUUID(datasetID string) string {
	return c.UUIDPrefix + UUIDSeparator + datasetID
}

// SplitDatasetUUID splits a dataset uuid into its cube uuid prefix and
// dataset id.
func SplitDatasetUUID(uuid string) (prefix, datasetID string, err error) {
	prefix, datasetID, ok := strings.Cut(uuid, UUIDSeparator)
	if !ok {
		return "", "", fmt.Errorf("dataset uuid %q does not contain the separator %q", uuid, UUIDSeparator)
	}
	if strings.Contains(datasetID, UUIDSeparator) {
		return "", "", fmt.Errorf("dataset uuid %q contains the separator %q more than once", uuid, UUIDSeparator)
	}
	return prefix, datasetID, nil
}

// ValidUUIDComponent reports whether s is usable as a uuid prefix or dataset
// id. The separator itself passes the charset check, which is why Validate
// additionally rejects prefixes containing it.
func ValidUUIDComponent(s string) bool {
	return uuidComponentRE.MatchString(s)
}
