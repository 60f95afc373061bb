package catalog

import "context"

// StaticDataset is an in-memory Dataset, mainly for tests and fixtures.
type StaticDataset struct {
	Meta  DatasetMetadata
	Parts []Partition
	Err   error // returned by Partitions when set
}

func (d *StaticDataset) Metadata() DatasetMetadata {
	return d.Meta
}

func (d *StaticDataset) Partitions(ctx context.Context) ([]Partition, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Parts, nil
}

// Static wraps a fixed dataset mapping into a Catalog.
func Static(datasets map[string]Dataset) Catalog {
	return staticCatalog{datasets: datasets}
}

type staticCatalog struct {
	datasets map[string]Dataset
}

func (c staticCatalog) Datasets(ctx context.Context) (map[string]Dataset, error) {
	return c.datasets, nil
}
