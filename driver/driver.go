// Package driver runs the full cube statistics pipeline locally: locate,
// collect blocks concurrently, reduce. It is one possible embedding of the
// stats core; distributed schedulers invoke the core's pieces directly
// instead.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/datamesa/cubestats/catalog"
	"github.com/datamesa/cubestats/metrics"
	"github.com/datamesa/cubestats/stats"
	"github.com/datamesa/cubestats/storage"
)

const (
	defaultBlockSize      = 100
	defaultMaxConcurrency = 32
)

type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Catalog catalog.Catalog
	Store   storage.Provider

	// BlockSize is the number of tagged partitions per collector block.
	BlockSize int

	// MaxConcurrency caps the number of blocks collected in parallel.
	MaxConcurrency int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Catalog == nil {
		return errors.New("catalog is required")
	}
	if cfg.Store == nil {
		return errors.New("store provider is required")
	}
	if cfg.BlockSize < 0 || cfg.MaxConcurrency < 0 {
		return errors.New("block size and max concurrency must not be negative")
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Driver struct {
	log   *slog.Logger
	cfg   Config
	clock clockwork.Clock
}

func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate driver config: %w", err)
	}
	return &Driver{log: cfg.Logger, cfg: cfg, clock: cfg.Clock}, nil
}

// CollectCubeStats computes the statistics of the whole cube. Any failing
// block fails the run; there are no retries and no partial results.
func (d *Driver) CollectCubeStats(ctx context.Context) (stats.CubeStats, error) {
	runID := uuid.New().String()
	start := d.clock.Now()
	log := d.log.With("run_id", runID)

	result, err := d.run(ctx, log)
	duration := d.clock.Since(start)
	metrics.RunDuration.Observe(duration.Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		log.Error("cube statistics run failed", "error", err, "duration", duration)
		return nil, err
	}
	metrics.RunsTotal.WithLabelValues("success").Inc()
	log.Info("cube statistics run finished", "datasets", len(result), "duration", duration)
	return result, nil
}

func (d *Driver) run(ctx context.Context, log *slog.Logger) (stats.CubeStats, error) {
	datasets, err := d.cfg.Catalog.Datasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve datasets: %w", err)
	}

	tagged, err := stats.Locate(ctx, datasets)
	if err != nil {
		return nil, err
	}
	metrics.PartitionsLocatedTotal.Add(float64(len(tagged)))

	blocks := chunk(tagged, d.cfg.BlockSize)
	log.Debug("located partitions", "partitions", len(tagged), "blocks", len(blocks))

	partials := make([]stats.CubeStats, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxConcurrency)
	for i, block := range blocks {
		g.Go(func() error {
			blockStart := d.clock.Now()
			partial, err := stats.Collect(gctx, block, d.cfg.Store)
			metrics.BlockCollectDuration.Observe(d.clock.Since(blockStart).Seconds())
			if err != nil {
				metrics.BlocksCollectedTotal.WithLabelValues("error").Inc()
				return err
			}
			metrics.BlocksCollectedTotal.WithLabelValues("success").Inc()
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats.Reduce(partials)
}

func chunk(tagged []stats.TaggedPartition, size int) [][]stats.TaggedPartition {
	var blocks [][]stats.TaggedPartition
	for len(tagged) > size {
		blocks = append(blocks, tagged[:size])
		tagged = tagged[size:]
	}
	if len(tagged) > 0 {
		blocks = append(blocks, tagged)
	}
	return blocks
}
