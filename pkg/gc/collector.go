// Package gc provides garbage collection for orphaned blobs.
//
// Blobs can outlive their metadata row: uploads write bytes before the row
// exists, recursive deletes swallow backend failures, and a crash between
// the two stores leaves content behind. The collector periodically diffs the
// blob store against the locators referenced by item rows and removes the
// difference.
package gc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/store/blob"
	"github.com/deskfs/deskfs/pkg/store/items"
)

// Collector periodically removes blobs no item row references.
//
// Safe for concurrent use.
type Collector struct {
	repo   items.Repository
	blobs  blob.Store
	lister blob.KeyLister
	config Config
	logger *zap.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether collection runs (default: false).
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run collection (default: 24h).
	Interval time.Duration `mapstructure:"interval"`

	// BatchSize caps deletions between cancellation checks (default: 100).
	BatchSize int `mapstructure:"batch_size"`

	// DryRun logs what would be deleted without deleting. Useful to audit
	// orphan accumulation before enabling destructive runs.
	DryRun bool `mapstructure:"dry_run"`
}

// NewCollector creates a collector over the given repository and blob store.
//
// The blob store must implement blob.KeyLister; stores that cannot enumerate
// their keys cannot be collected.
//
// Returns the initialized collector (not started), or an error if the store
// is not listable.
func NewCollector(repo items.Repository, blobs blob.Store, config Config, logger *zap.Logger) (*Collector, error) {
	lister, ok := blobs.(blob.KeyLister)
	if !ok {
		return nil, fmt.Errorf("blob store %T does not support key listing", blobs)
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		repo:   repo,
		blobs:  blobs,
		lister: lister,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start begins background collection at the configured interval. No-op when
// collection is disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		c.logger.Info("blob garbage collection disabled")
		return
	}

	c.logger.Info("starting blob garbage collector",
		zap.Duration("interval", c.config.Interval),
		zap.Int("batch_size", c.config.BatchSize),
		zap.Bool("dry_run", c.config.DryRun))

	go c.worker()
}

// Stop signals the worker to stop and waits for any in-progress run.
//
// Returns ctx.Err() if the context expires before shutdown completes.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	close(c.stopCh)

	select {
	case <-c.doneCh:
		c.logger.Info("blob garbage collector stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("blob garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate collection run, blocking until it completes
// or ctx is cancelled. Works even when periodic collection is disabled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				c.logger.Error("blob garbage collection failed", zap.Error(err))
			} else {
				c.logger.Info("blob garbage collection completed", zap.String("stats", stats.Summary()))
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single run: list referenced locators, list stored
// blobs, delete the difference.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	referenced, err := c.repo.ListLocators(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list referenced locators: %w", err)
	}
	stats.ReferencedCount = len(referenced)

	referencedSet := make(map[string]struct{}, len(referenced))
	for _, locator := range referenced {
		referencedSet[locator] = struct{}{}
	}

	existing, err := c.lister.ListKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list blobs: %w", err)
	}
	stats.ExistingCount = len(existing)

	orphaned := make([]string, 0)
	for _, locator := range existing {
		if _, ok := referencedSet[locator]; !ok {
			orphaned = append(orphaned, locator)
		}
	}
	stats.OrphanedCount = len(orphaned)

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		return stats, nil
	}

	if c.config.DryRun {
		for i, locator := range orphaned {
			if i >= 10 {
				c.logger.Info("dry run: more orphans omitted", zap.Int("remaining", len(orphaned)-10))
				break
			}
			c.logger.Info("dry run: would delete orphaned blob", zap.String("locator", locator))
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		end := i + c.config.BatchSize
		if end > len(orphaned) {
			end = len(orphaned)
		}

		for _, locator := range orphaned[i:end] {
			err := c.blobs.Delete(ctx, locator)
			switch {
			case err == nil, errors.Is(err, blob.ErrBlobNotFound):
				stats.DeletedCount++
			default:
				stats.FailedCount++
				c.logger.Debug("failed to delete orphaned blob",
					zap.String("locator", locator),
					zap.Error(err))
			}
		}
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// Stats contains statistics from a collection run.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount int // locators referenced by item rows
	ExistingCount   int // blobs present in the store
	OrphanedCount   int // blobs with no referencing row
	DeletedCount    int
	FailedCount     int
}

// Duration returns the total run duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a one-line human-readable summary.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
