package worker

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// =============================================================================
// DATA CLEANUP WORKER: prunes rate-limit rows and old lead events
// =============================================================================
// Retention policies:
//   - rate_limiting rows:  24 hours (the limiter only looks one window back)
//   - lead_events:         tracking.retention_days (90 by default)
//
// Deletes run in batches to avoid long-running transactions.

const (
	// DefaultCleanupInterval is how often the cleanup cycle runs.
	DefaultCleanupInterval = 1 * time.Hour

	// DefaultRateLimitRetention is how long rate_limiting rows are kept.
	DefaultRateLimitRetention = 24 * time.Hour

	// DefaultEventRetention is how long lead events are kept.
	DefaultEventRetention = 90 * 24 * time.Hour

	// cleanupBatchSize limits each DELETE to avoid table-level locks.
	cleanupBatchSize = 10000
)

// DataCleanupWorker periodically removes expired rows.
type DataCleanupWorker struct {
	db                 *sql.DB
	interval           time.Duration
	rateLimitRetention time.Duration
	eventRetention     time.Duration
	batchSize          int
	pause              time.Duration
	now                func() time.Time
	log                *logger.Logger
}

// NewDataCleanupWorker creates a cleanup worker. Non-positive durations use
// the defaults.
func NewDataCleanupWorker(db *sql.DB, interval, rateLimitRetention, eventRetention time.Duration) *DataCleanupWorker {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if rateLimitRetention <= 0 {
		rateLimitRetention = DefaultRateLimitRetention
	}
	if eventRetention <= 0 {
		eventRetention = DefaultEventRetention
	}
	return &DataCleanupWorker{
		db:                 db,
		interval:           interval,
		rateLimitRetention: rateLimitRetention,
		eventRetention:     eventRetention,
		batchSize:          cleanupBatchSize,
		pause:              100 * time.Millisecond,
		now:                time.Now,
		log:                logger.With("worker", "data_cleanup"),
	}
}

// Start begins the cleanup loop. It blocks until ctx is cancelled.
func (dc *DataCleanupWorker) Start(ctx context.Context) {
	dc.log.Info("starting", "interval", dc.interval, "batch_size", dc.batchSize)

	// Run once immediately on start
	dc.cleanup(ctx)

	ticker := time.NewTicker(dc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dc.log.Info("stopping")
			return
		case <-ticker.C:
			dc.cleanup(ctx)
		}
	}
}

func (dc *DataCleanupWorker) cleanup(ctx context.Context) {
	start := time.Now()

	limits := dc.batchDelete(ctx, "rate_limiting", `
		DELETE FROM rate_limiting
		WHERE id IN (
			SELECT id FROM rate_limiting
			WHERE timestamp < $2
			LIMIT $1
		)
	`, dc.now().Add(-dc.rateLimitRetention).Unix())

	events := dc.batchDelete(ctx, "lead_events", `
		DELETE FROM lead_events
		WHERE id IN (
			SELECT id FROM lead_events
			WHERE occurred_at < $2
			LIMIT $1
		)
	`, dc.now().Add(-dc.eventRetention))

	dc.log.Info("cleanup cycle completed",
		"rate_limit_rows", limits, "events", events,
		"duration", time.Since(start).Round(time.Millisecond))
}

// batchDelete runs query in a loop, passing batchSize as $1 and cutoff as
// $2, until zero rows are affected. Returns the cumulative number of deleted
// rows. A missing table is logged once and skipped.
func (dc *DataCleanupWorker) batchDelete(ctx context.Context, table, query string, cutoff interface{}) int64 {
	var totalDeleted int64

	for {
		if ctx.Err() != nil {
			return totalDeleted
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := dc.db.ExecContext(queryCtx, query, dc.batchSize, cutoff)
		cancel()

		if err != nil {
			if isTableNotExistsError(err) {
				if totalDeleted == 0 {
					dc.log.Warn("table does not exist, skipping", "table", table)
				}
				return totalDeleted
			}
			dc.log.Error("delete failed", "table", table, "error", err)
			return totalDeleted
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			return totalDeleted
		}
		totalDeleted += affected

		if dc.pause > 0 {
			time.Sleep(dc.pause)
		}
	}
}

func isTableNotExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}
