// Package pg implements the cube catalog on top of PostgreSQL, for
// deployments that track dataset and partition metadata in a relational
// store instead of metadata documents next to the data.
package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/cube"
)

type CatalogConfig struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Cube   cube.Cube
}

func (cfg *CatalogConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if err := cfg.Cube.Validate(); err != nil {
		return fmt.Errorf("invalid cube: %w", err)
	}
	return nil
}

// Catalog resolves cube datasets from the relational catalog tables.
// Partitions are stored at the grouping granularity the cube format expects,
// so they are returned as-is.
type Catalog struct {
	log  *slog.Logger
	pool *pgxpool.Pool
	cube cube.Cube
}

func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate pg catalog config: %w", err)
	}
	return &Catalog{log: cfg.Logger, pool: cfg.Pool, cube: cfg.Cube}, nil
}

func (c *Catalog) Datasets(ctx context.Context) (map[string]catalog.Dataset, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT dataset_uuid, dataset_id, metadata_version, partition_keys, columns
		FROM cube_datasets
		WHERE uuid_prefix = $1
		ORDER BY dataset_id
	`, c.cube.UUIDPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := make(map[string]catalog.Dataset)
	for rows.Next() {
		var md catalog.DatasetMetadata
		var datasetID string
		if err := rows.Scan(&md.UUID, &datasetID, &md.MetadataVersion, &md.PartitionKeys, &md.Columns); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		datasets[datasetID] = &pgDataset{pool: c.pool, meta: md}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset rows: %w", err)
	}
	return datasets, nil
}

// RegisterDataset writes a dataset and its partitions into the catalog
// tables, replacing any previous registration of the same dataset. It is the
// ingest-side hook; the stats pipeline itself never writes.
func (c *Catalog) RegisterDataset(ctx context.Context, datasetID string, md catalog.DatasetMetadata, partitions []catalog.Partition) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cube_datasets WHERE dataset_uuid = $1`, md.UUID); err != nil {
		return fmt.Errorf("failed to clear previous registration: %w", err)
	}

	partitionKeys := md.PartitionKeys
	if partitionKeys == nil {
		partitionKeys = []string{}
	}
	columns := md.Columns
	if columns == nil {
		columns = []string{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO cube_datasets (dataset_uuid, uuid_prefix, dataset_id, metadata_version, partition_keys, columns)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, md.UUID, c.cube.UUIDPrefix, datasetID, md.MetadataVersion, partitionKeys, columns); err != nil {
		return fmt.Errorf("failed to insert dataset %s: %w", datasetID, err)
	}

	for _, p := range partitions {
		var partitionID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO cube_partitions (dataset_uuid, label)
			VALUES ($1, $2)
			RETURNING id
		`, md.UUID, p.Label).Scan(&partitionID); err != nil {
			return fmt.Errorf("failed to insert partition %s: %w", p.Label, err)
		}
		for _, f := range p.Files {
			var rowCount *int64
			if f.Rows >= 0 {
				rowCount = &f.Rows
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO cube_partition_files (partition_id, file_key, row_count)
				VALUES ($1, $2, $3)
			`, partitionID, f.Key, rowCount); err != nil {
				return fmt.Errorf("failed to insert partition file %s: %w", f.Key, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	c.log.Debug("registered dataset", "dataset", datasetID, "partitions", len(partitions))
	return nil
}

type pgDataset struct {
	pool *pgxpool.Pool
	meta catalog.DatasetMetadata
}

func (d *pgDataset) Metadata() catalog.DatasetMetadata {
	return d.meta
}

func (d *pgDataset) Partitions(ctx context.Context) ([]catalog.Partition, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT p.label, f.file_key, f.row_count
		FROM cube_partitions p
		JOIN cube_partition_files f ON f.partition_id = p.id
		WHERE p.dataset_uuid = $1
		ORDER BY p.label, f.file_key
	`, d.meta.UUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query partitions of %s: %w", d.meta.UUID, err)
	}
	defer rows.Close()

	var partitions []catalog.Partition
	for rows.Next() {
		var label, fileKey string
		var rowCount *int64
		if err := rows.Scan(&label, &fileKey, &rowCount); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		rowsInFile := catalog.RowsUnknown
		if rowCount != nil {
			rowsInFile = *rowCount
		}
		file := catalog.PartitionFile{Key: fileKey, Rows: rowsInFile}

		if n := len(partitions); n > 0 && partitions[n-1].Label == label {
			partitions[n-1].Files = append(partitions[n-1].Files, file)
		} else {
			partitions = append(partitions, catalog.Partition{Label: label, Files: []catalog.PartitionFile{file}})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partition rows: %w", err)
	}
	return partitions, nil
}
