package admin

import (
	"context"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
)

// Repository defines the data access contract for back-office reads and
// stage updates.
type Repository interface {
	// List returns leads of one funnel matching the filter, newest first,
	// plus the total number of matches ignoring Limit/Offset.
	List(ctx context.Context, filter Filter) ([]domain.Lead, int, error)

	// UpdateStage moves a lead to another pipeline stage. Returns
	// ErrNotFound when no row matches.
	UpdateStage(ctx context.Context, funnel domain.Funnel, id int64, stage domain.Stage) error

	// Stats aggregates one funnel.
	Stats(ctx context.Context, funnel domain.Funnel, today time.Time) (*Stats, error)

	// GetByToken loads a ROI lead by its report token. Returns ErrNotFound
	// when the token is unknown.
	GetByToken(ctx context.Context, token string) (*domain.Lead, error)
}

// Filter controls filtering and pagination of lead lists.
type Filter struct {
	Funnel domain.Funnel
	Stage  domain.Stage
	From   time.Time // inclusive, zero means unbounded
	To     time.Time // exclusive, zero means unbounded
	Search string    // matches name, email or phone
	Limit  int
	Offset int
}

// Stats is the dashboard summary of one funnel.
type Stats struct {
	Funnel       domain.Funnel `json:"funnel"`
	Total        int           `json:"total"`
	Today        int           `json:"today"`
	New          int           `json:"new"`
	PendingRelay int           `json:"pending_relay"`
	Recoverable  float64       `json:"recoverable"`
}
