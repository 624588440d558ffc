package worker

import (
	"context"
	"time"

	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// =============================================================================
// LEASE RECLAIMER: reverts stale relay claims
// =============================================================================
// A relay run that dies between Claim and MarkRelayed/Release leaves leads in
// 'claimed' forever. This worker periodically returns claims older than the
// lease to 'pending' so the next run picks them up again.

const (
	// DefaultRecoveryInterval is how often we scan for stale claims.
	DefaultRecoveryInterval = 2 * time.Minute

	// DefaultLease is how long a claim is honoured.
	DefaultLease = 5 * time.Minute
)

// Reclaimer releases claims older than lease. relay.Service satisfies it.
type Reclaimer interface {
	ReclaimStale(ctx context.Context, lease time.Duration) (int64, error)
}

// LeaseReclaimer periodically reverts stale relay claims.
type LeaseReclaimer struct {
	relay    Reclaimer
	interval time.Duration
	lease    time.Duration
	log      *logger.Logger
}

// NewLeaseReclaimer creates a reclaimer. Non-positive durations use the
// defaults.
func NewLeaseReclaimer(relay Reclaimer, interval, lease time.Duration) *LeaseReclaimer {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &LeaseReclaimer{
		relay:    relay,
		interval: interval,
		lease:    lease,
		log:      logger.With("worker", "lease_reclaimer"),
	}
}

// Start begins the recovery loop. It blocks until ctx is cancelled.
func (lr *LeaseReclaimer) Start(ctx context.Context) {
	lr.log.Info("starting", "interval", lr.interval, "lease", lr.lease)

	ticker := time.NewTicker(lr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lr.log.Info("stopping")
			return
		case <-ticker.C:
			lr.reclaim(ctx)
		}
	}
}

func (lr *LeaseReclaimer) reclaim(ctx context.Context) int64 {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := lr.relay.ReclaimStale(queryCtx, lr.lease)
	if err != nil {
		lr.log.Error("reclaim stale claims failed", "error", err)
		return 0
	}
	if n > 0 {
		lr.log.Warn("reverted stale relay claims", "count", n)
	}
	return n
}
