package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/distlock"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// Options tunes a relay run.
type Options struct {
	Enabled   bool          // false => dry run: leads are marked relayed without a call
	BatchSize int           // page size when listing pending leads
	Pause     time.Duration // delay between two CRM calls
}

// Service runs batch relays. It is safe for concurrent use; overlapping runs
// are rejected with ErrRunInProgress.
type Service struct {
	repo     Repository
	sender   Sender
	locks    distlock.Factory
	archiver Archiver
	opts     Options
	now      func() time.Time
	log      *logger.Logger
}

// NewService creates a relay service. archiver may be nil.
func NewService(repo Repository, sender Sender, locks distlock.Factory, archiver Archiver, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Service{
		repo:     repo,
		sender:   sender,
		locks:    locks,
		archiver: archiver,
		opts:     opts,
		now:      time.Now,
		log:      logger.With("component", "relay"),
	}
}

// Run relays every pending lead once. The report is returned even when the
// run stops early with an error.
func (s *Service) Run(ctx context.Context) (*domain.RelayReport, error) {
	lock := s.locks()
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire relay lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			s.log.Warn("release relay lock failed", "error", err)
		}
	}()

	report := &domain.RelayReport{
		RunID:     uuid.New().String(),
		StartedAt: s.now().UTC(),
		DryRun:    !s.opts.Enabled,
	}
	log := s.log.With("run_id", report.RunID)
	if report.DryRun {
		log.Warn("relay API disabled, running in dry-run mode: leads will be marked relayed without being sent")
	}

	runErr := s.process(ctx, log, report)
	report.FinishedAt = s.now().UTC()

	log.Info("relay run finished",
		"total", report.Total, "sent", report.Sent, "failed", report.Failed,
		"skipped", report.Skipped, "dry_run", report.DryRun)

	if s.archiver != nil {
		if err := s.archiver.Archive(context.WithoutCancel(ctx), report, RenderText(report)); err != nil {
			log.Warn("archive relay report failed", "error", err)
		}
	}
	return report, runErr
}

func (s *Service) process(ctx context.Context, log *logger.Logger, report *domain.RelayReport) error {
	var afterID int64
	calls := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		leads, err := s.repo.ListPending(ctx, afterID, s.opts.BatchSize)
		if err != nil {
			return fmt.Errorf("list pending leads: %w", err)
		}

		for _, lead := range leads {
			afterID = lead.ID
			report.Total++

			claimed, err := s.repo.Claim(ctx, lead.ID, s.now().UTC())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.fail(log, report, lead, fmt.Errorf("claim: %w", err))
				continue
			}
			if !claimed {
				report.Skipped++
				continue
			}

			if !report.DryRun && calls > 0 && s.opts.Pause > 0 {
				if err := sleep(ctx, s.opts.Pause); err != nil {
					s.release(lead, "run cancelled")
					return err
				}
			}
			if err := ctx.Err(); err != nil {
				s.release(lead, "run cancelled")
				return err
			}

			if !report.DryRun {
				calls++
				if err := s.sender.Send(ctx, BuildPayload(lead)); err != nil {
					s.release(lead, err.Error())
					s.fail(log, report, lead, err)
					continue
				}
			}

			// The call went through, so commit even if ctx was cancelled meanwhile.
			if err := s.repo.MarkRelayed(context.WithoutCancel(ctx), lead.ID); err != nil {
				s.fail(log, report, lead, fmt.Errorf("mark relayed: %w", err))
				continue
			}
			report.Sent++
			log.Info("lead relayed", "lead_id", lead.ID, "dry_run", report.DryRun)
		}

		if len(leads) < s.opts.BatchSize {
			return nil
		}
	}
}

// ReclaimStale releases claims older than lease. It backs the lease
// reclaimer worker.
func (s *Service) ReclaimStale(ctx context.Context, lease time.Duration) (int64, error) {
	return s.repo.ReclaimStale(ctx, s.now().UTC().Add(-lease))
}

// release reverts a claim on a context that outlives the run's.
func (s *Service) release(lead domain.Lead, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Release(ctx, lead.ID, reason); err != nil {
		s.log.Error("release claim failed", "lead_id", lead.ID, "error", err)
	}
}

func (s *Service) fail(log *logger.Logger, report *domain.RelayReport, lead domain.Lead, err error) {
	report.Failed++
	report.Errors = append(report.Errors, fmt.Sprintf("Lead #%d (%s): %v", lead.ID, lead.Name, err))
	log.Warn("lead relay failed", "lead_id", lead.ID, "error", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
