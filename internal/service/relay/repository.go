package relay

import (
	"context"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
)

// Repository defines the relay state transitions on stored leads.
type Repository interface {
	// ListPending returns up to limit pending leads with ID > afterID,
	// oldest first.
	ListPending(ctx context.Context, afterID int64, limit int) ([]domain.Lead, error)

	// Claim moves a lead from pending to claimed. It returns false when the
	// lead is no longer pending (another run holds or finished it).
	Claim(ctx context.Context, id int64, now time.Time) (bool, error)

	// MarkRelayed commits a claim. Relaying an already relayed lead is a no-op.
	MarkRelayed(ctx context.Context, id int64) error

	// Release reverts a claim to pending and records why.
	Release(ctx context.Context, id int64, errMsg string) error

	// ReclaimStale releases claims taken before olderThan and returns how many.
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// Archiver keeps a copy of finished run reports.
type Archiver interface {
	Archive(ctx context.Context, report *domain.RelayReport, text string) error
}
