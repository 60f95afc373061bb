// Package consistency validates that the datasets found for a cube actually
// form that cube: right metadata version, right uuids, partition keys and
// dimension columns in place, and no payload column stored twice.
package consistency

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/cube"
)

// CheckDatasets verifies the datasets of a cube against its definition. All
// violations are reported at once via a joined error.
func CheckDatasets(datasets map[string]catalog.Dataset, c cube.Cube) error {
	var errs []error

	// The seed dataset is required even when no datasets were found at all.
	if _, ok := datasets[c.SeedDataset]; !ok {
		errs = append(errs, fmt.Errorf("seed dataset %q is missing", c.SeedDataset))
	}

	payloadOwners := make(map[string][]string)

	for _, datasetID := range slices.Sorted(maps.Keys(datasets)) {
		md := datasets[datasetID].Metadata()

		if md.MetadataVersion != cube.MetadataVersion {
			errs = append(errs, fmt.Errorf(
				"dataset %s has metadata version %d, expected %d",
				datasetID, md.MetadataVersion, cube.MetadataVersion,
			))
		}

		if want := c.DatasetUUID(datasetID); md.UUID != want {
			errs = append(errs, fmt.Errorf(
				"dataset %s has uuid %q, expected %q", datasetID, md.UUID, want,
			))
		}

		if want := expectedPartitionKeys(c, md.Columns); !slices.Equal(md.PartitionKeys, want) {
			errs = append(errs, fmt.Errorf(
				"dataset %s is partitioned by [%s], expected [%s]",
				datasetID, strings.Join(md.PartitionKeys, ", "), strings.Join(want, ", "),
			))
		}

		errs = append(errs, checkDimensionColumns(c, datasetID, md.Columns)...)

		for _, col := range payloadColumns(c, md.Columns) {
			payloadOwners[col] = append(payloadOwners[col], datasetID)
		}
	}

	for _, col := range slices.Sorted(maps.Keys(payloadOwners)) {
		owners := payloadOwners[col]
		if len(owners) > 1 {
			errs = append(errs, fmt.Errorf(
				"payload column %q is present in multiple datasets: %s",
				col, strings.Join(owners, ", "),
			))
		}
	}

	return errors.Join(errs...)
}

// expectedPartitionKeys restricts the cube's partition columns to those the
// dataset actually carries, keeping the cube-defined order.
func expectedPartitionKeys(c cube.Cube, columns []string) []string {
	keys := []string{}
	for _, col := range c.PartitionColumns {
		if slices.Contains(columns, col) {
			keys = append(keys, col)
		}
	}
	return keys
}

// checkDimensionColumns enforces that the seed dataset spans the full
// dimension space while every other dataset touches at least one dimension.
func checkDimensionColumns(c cube.Cube, datasetID string, columns []string) []error {
	var errs []error
	if datasetID == c.SeedDataset {
		for _, col := range c.DimensionColumns {
			if !slices.Contains(columns, col) {
				errs = append(errs, fmt.Errorf(
					"seed dataset %s is missing dimension column %q", datasetID, col,
				))
			}
		}
		return errs
	}

	for _, col := range c.DimensionColumns {
		if slices.Contains(columns, col) {
			return nil
		}
	}
	return []error{fmt.Errorf("dataset %s has no dimension column of the cube", datasetID)}
}

// payloadColumns returns the dataset's columns that are neither dimension nor
// partition columns.
func payloadColumns(c cube.Cube, columns []string) []string {
	var payload []string
	for _, col := range columns {
		if slices.Contains(c.DimensionColumns, col) || slices.Contains(c.PartitionColumns, col) {
			continue
		}
		payload = append(payload, col)
	}
	return payload
}
