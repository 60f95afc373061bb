package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/catalog/pg"
	"github.com/datamesa/cubestats/consistency"
	"github.com/datamesa/cubestats/cube"
	"github.com/datamesa/cubestats/driver"
	"github.com/datamesa/cubestats/logger"
	"github.com/datamesa/cubestats/stats"
	"github.com/datamesa/cubestats/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	envFileFlag := flag.String("env-file", "", "optional .env file to load before reading flags")

	// Cube configuration
	uuidPrefixFlag := flag.String("cube-uuid-prefix", "", "cube uuid prefix (or set CUBESTATS_UUID_PREFIX env var)")
	seedDatasetFlag := flag.String("cube-seed-dataset", "seed", "seed dataset id of the cube")
	dimensionColumnsFlag := flag.StringSlice("cube-dimension-columns", nil, "cube dimension columns")
	partitionColumnsFlag := flag.StringSlice("cube-partition-columns", nil, "cube partition columns")
	discoverCubeFlag := flag.Bool("discover-cube", false, "read the cube definition from the stored seed dataset metadata instead of flags")

	// Store configuration
	storeBackendFlag := flag.String("store", "s3", "object store backend (s3, dir)")
	s3BucketFlag := flag.String("s3-bucket", "", "S3 bucket (or set CUBESTATS_S3_BUCKET env var)")
	s3PrefixFlag := flag.String("s3-prefix", "", "key prefix inside the S3 bucket")
	s3RegionFlag := flag.String("s3-region", "", "AWS region")
	s3EndpointFlag := flag.String("s3-endpoint", "", "S3 endpoint override, for S3-compatible stores")
	s3PathStyleFlag := flag.Bool("s3-path-style", false, "use path-style S3 addressing")
	dirFlag := flag.String("dir", "", "directory root for the dir store backend")
	storeRetriesFlag := flag.Bool("store-retries", true, "retry transient object store failures")
	storeRateLimitFlag := flag.Float64("store-rate-limit", 0, "object store request rate limit per second (0 = unlimited)")

	// Catalog configuration
	catalogBackendFlag := flag.String("catalog", "kv", "catalog backend (kv, pg)")
	pgDSNFlag := flag.String("pg-dsn", "", "PostgreSQL connection string for the pg catalog (or set CUBESTATS_PG_DSN env var)")
	pgMigrateFlag := flag.Bool("pg-migrate", false, "run catalog database migrations and exit")

	// Run configuration
	blockSizeFlag := flag.Int("block-size", 0, "tagged partitions per collector block (0 = default)")
	maxConcurrencyFlag := flag.Int("max-concurrency", 0, "maximum blocks collected in parallel (0 = default)")
	checkConsistencyFlag := flag.Bool("check-consistency", false, "verify catalog consistency before collecting")
	jsonFlag := flag.Bool("json", false, "print statistics as JSON instead of text")

	flag.Parse()

	if *envFileFlag != "" {
		if err := godotenv.Load(*envFileFlag); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", *envFileFlag, err)
		}
	}

	log := logger.New(*verboseFlag)

	// Override flags with environment variables if set
	if envPrefix := os.Getenv("CUBESTATS_UUID_PREFIX"); envPrefix != "" {
		*uuidPrefixFlag = envPrefix
	}
	if envBucket := os.Getenv("CUBESTATS_S3_BUCKET"); envBucket != "" {
		*s3BucketFlag = envBucket
	}
	if envDSN := os.Getenv("CUBESTATS_PG_DSN"); envDSN != "" {
		*pgDSNFlag = envDSN
	}

	ctx := context.Background()

	if *pgMigrateFlag {
		if *pgDSNFlag == "" {
			return fmt.Errorf("--pg-dsn is required for --pg-migrate")
		}
		return pg.RunMigrations(log, *pgDSNFlag)
	}

	store, err := buildStore(ctx, *storeBackendFlag, storeFlags{
		s3Bucket:    *s3BucketFlag,
		s3Prefix:    *s3PrefixFlag,
		s3Region:    *s3RegionFlag,
		s3Endpoint:  *s3EndpointFlag,
		s3PathStyle: *s3PathStyleFlag,
		dir:         *dirFlag,
		retries:     *storeRetriesFlag,
		rateLimit:   *storeRateLimitFlag,
	})
	if err != nil {
		return err
	}

	var c cube.Cube
	if *discoverCubeFlag {
		if *uuidPrefixFlag == "" {
			return fmt.Errorf("--cube-uuid-prefix is required for --discover-cube")
		}
		c, err = catalog.DiscoverKVCube(ctx, store, *uuidPrefixFlag)
		if err != nil {
			return fmt.Errorf("failed to discover cube: %w", err)
		}
		log.Info("discovered cube",
			"seed", c.SeedDataset,
			"dimension_columns", c.DimensionColumns,
			"partition_columns", c.PartitionColumns,
		)
	} else {
		c = cube.Cube{
			UUIDPrefix:       *uuidPrefixFlag,
			DimensionColumns: *dimensionColumnsFlag,
			PartitionColumns: *partitionColumnsFlag,
			SeedDataset:      *seedDatasetFlag,
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid cube: %w", err)
		}
	}

	cat, err := buildCatalog(ctx, log, *catalogBackendFlag, *pgDSNFlag, store, c)
	if err != nil {
		return err
	}

	if *checkConsistencyFlag {
		datasets, err := cat.Datasets(ctx)
		if err != nil {
			return fmt.Errorf("failed to list datasets for consistency check: %w", err)
		}
		if err := consistency.CheckDatasets(datasets, c); err != nil {
			return fmt.Errorf("cube is inconsistent: %w", err)
		}
		log.Info("consistency check passed", "datasets", len(datasets))
	}

	d, err := driver.New(driver.Config{
		Logger:         log,
		Catalog:        cat,
		Store:          storage.Fixed(store),
		BlockSize:      *blockSizeFlag,
		MaxConcurrency: *maxConcurrencyFlag,
	})
	if err != nil {
		return err
	}

	result, err := d.CollectCubeStats(ctx)
	if err != nil {
		return err
	}

	if *jsonFlag {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal statistics: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	printStats(result)
	return nil
}

type storeFlags struct {
	s3Bucket    string
	s3Prefix    string
	s3Region    string
	s3Endpoint  string
	s3PathStyle bool
	dir         string
	retries     bool
	rateLimit   float64
}

func buildStore(ctx context.Context, backend string, f storeFlags) (storage.Store, error) {
	var store storage.Store
	switch backend {
	case "s3":
		if f.s3Bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required for the s3 store backend")
		}
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       f.s3Bucket,
			Prefix:       f.s3Prefix,
			Region:       f.s3Region,
			Endpoint:     f.s3Endpoint,
			UsePathStyle: f.s3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 store: %w", err)
		}
		store = s3Store
	case "dir":
		if f.dir == "" {
			return nil, fmt.Errorf("--dir is required for the dir store backend")
		}
		dirStore, err := storage.NewDirStore(f.dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open dir store: %w", err)
		}
		store = dirStore
	default:
		return nil, fmt.Errorf("unknown store backend %q (expected s3 or dir)", backend)
	}

	if f.rateLimit > 0 {
		store = storage.WithRateLimit(store, f.rateLimit, int(f.rateLimit))
	}
	if f.retries {
		store = storage.WithRetry(store, storage.DefaultRetryConfig())
	}
	return store, nil
}

func buildCatalog(ctx context.Context, log *slog.Logger, backend, pgDSN string, store storage.Store, c cube.Cube) (catalog.Catalog, error) {
	switch backend {
	case "kv":
		return catalog.NewKVCatalog(catalog.KVCatalogConfig{
			Logger: log,
			Store:  store,
			Cube:   c,
		})
	case "pg":
		if pgDSN == "" {
			return nil, fmt.Errorf("--pg-dsn is required for the pg catalog backend")
		}
		pool, err := pgxpool.New(ctx, pgDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
		}
		return pg.NewCatalog(pg.CatalogConfig{
			Logger: log,
			Pool:   pool,
			Cube:   c,
		})
	default:
		return nil, fmt.Errorf("unknown catalog backend %q (expected kv or pg)", backend)
	}
}

func printStats(result stats.CubeStats) {
	for _, datasetID := range slices.Sorted(maps.Keys(result)) {
		fmt.Printf("%s:\n", datasetID)
		datasetStats := result[datasetID]
		for _, metric := range slices.Sorted(maps.Keys(datasetStats)) {
			fmt.Printf("  %s: %d\n", metric, datasetStats[metric])
		}
	}
}
