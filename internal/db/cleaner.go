package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const purgeExpiredNotesQuery = `DELETE FROM notes WHERE expiration_date < $1`

// ExpiredNoteCleaner purges notes whose expiration date lies more than
// Retention in the past. Such notes can no longer be read publicly.
type ExpiredNoteCleaner struct {
	DB        *sql.DB
	Retention time.Duration
	Log       *zap.Logger

	now func() time.Time
}

// Purge runs a single cleanup pass and returns the number of removed notes.
func (c *ExpiredNoteCleaner) Purge(ctx context.Context) (int64, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}

	res, err := c.DB.ExecContext(ctx, purgeExpiredNotesQuery, now().Add(-c.Retention).UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired notes: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired notes: %w", err)
	}
	return removed, nil
}

// Run calls Purge on every tick of interval and returns when ctx is done.
// Failed passes are logged and retried on the next tick.
func (c *ExpiredNoteCleaner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		removed, err := c.Purge(ctx)
		switch {
		case err != nil:
			c.Log.Error("failed to clean expired notes", zap.Error(err))
		case removed > 0:
			c.Log.Info("cleaned expired notes",
				zap.Int64("removed", removed),
				zap.Duration("retention", c.Retention),
			)
		}
	}
}

// StartExpiredNoteCleaner runs an ExpiredNoteCleaner in a new goroutine
// until ctx is done.
func StartExpiredNoteCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	c := &ExpiredNoteCleaner{DB: db, Retention: retention, Log: log}
	go c.Run(ctx, interval)
}
