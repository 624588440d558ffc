package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/service/relay"
)

// =============================================================================
// RELAY SCHEDULER WORKER
// =============================================================================
// Runs the batch relay on a fixed interval as an alternative to the external
// cron hitting /cron/relay. Overlap with other triggers is harmless: the run
// lock rejects a second run and claims prevent double sends.

// Runner is satisfied by relay.Service.
type Runner interface {
	Run(ctx context.Context) (*domain.RelayReport, error)
}

// RelayStats counts scheduler activity since start.
type RelayStats struct {
	Runs    int64 `json:"runs"`
	Skipped int64 `json:"skipped"` // another run held the lock
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Errors  int64 `json:"errors"`
}

// RelayScheduler triggers relay runs periodically.
type RelayScheduler struct {
	runner   Runner
	interval time.Duration
	log      *logger.Logger

	runs, skipped, sent, failed, errs int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRelayScheduler creates a scheduler running every interval.
func NewRelayScheduler(runner Runner, interval time.Duration) *RelayScheduler {
	return &RelayScheduler{
		runner:   runner,
		interval: interval,
		log:      logger.With("worker", "relay_scheduler"),
	}
}

// Start launches the loop in the background. Calling Start twice is a no-op.
func (s *RelayScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("starting", "interval", s.interval)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("stopping")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *RelayScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (s *RelayScheduler) Stats() RelayStats {
	return RelayStats{
		Runs:    atomic.LoadInt64(&s.runs),
		Skipped: atomic.LoadInt64(&s.skipped),
		Sent:    atomic.LoadInt64(&s.sent),
		Failed:  atomic.LoadInt64(&s.failed),
		Errors:  atomic.LoadInt64(&s.errs),
	}
}

func (s *RelayScheduler) runOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	if errors.Is(err, relay.ErrRunInProgress) {
		atomic.AddInt64(&s.skipped, 1)
		s.log.Info("relay run already in progress, skipping tick")
		return
	}
	atomic.AddInt64(&s.runs, 1)
	if report != nil {
		atomic.AddInt64(&s.sent, int64(report.Sent))
		atomic.AddInt64(&s.failed, int64(report.Failed))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		atomic.AddInt64(&s.errs, 1)
		s.log.Error("scheduled relay run failed", "error", err)
	}
}
