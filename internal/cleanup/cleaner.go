package cleanup

import (
	"context"
	"os"
	"time"

	"chameleon-backend/internal/repository"

	"go.uber.org/zap"
)

// Cleaner reclaims uploads past the retention window. One sweep runs per
// tick; record deletions happen in a single transaction so a mid-sweep
// database failure leaves every record in place for the next tick. Files
// already removed in a rolled-back sweep are not restored - a file may be
// removed without its record, never the reverse.
type Cleaner struct {
	repo      repository.UploadRepository
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// NewCleaner creates a new retention sweeper.
func NewCleaner(repo repository.UploadRepository, retention, interval time.Duration, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Run starts the periodic reclamation sweep.
func (c *Cleaner) Run(ctx context.Context) {
	c.logger.Info("Upload cleaner started.", zap.Duration("retention", c.retention), zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Upload cleaner stopped.")
			return
		case <-ticker.C:
			if err := c.Sweep(time.Now()); err != nil {
				c.logger.Error("Upload sweep failed, will retry on next tick", zap.Error(err))
			}
		}
	}
}

// Sweep removes every upload whose record is older than now minus the
// retention window, file first, record second. A file that fails to delete
// (other than by already being gone) keeps its record for the next sweep so
// a record never outlives its file. Running Sweep twice with no new expired
// records is a no-op.
func (c *Cleaner) Sweep(now time.Time) error {
	cutoff := now.Add(-c.retention)

	records, err := c.repo.SelectExpired(cutoff)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(records))
	for _, record := range records {
		if err := os.Remove(record.Path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to delete expired upload file, keeping record",
				zap.String("path", record.Path), zap.Error(err))
			continue
		}
		ids = append(ids, record.ID)
	}

	if err := c.repo.DeleteBatch(ids); err != nil {
		return err
	}

	c.logger.Info("Upload sweep completed.", zap.Int("reclaimed", len(ids)), zap.Int("expired", len(records)))
	return nil
}
