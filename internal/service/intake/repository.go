package intake

import (
	"context"

	"github.com/ignite/leadfunnel/internal/domain"
)

// Repository persists accepted leads.
type Repository interface {
	// Insert stores the lead in its funnel's table in a single statement and
	// returns the assigned ID.
	Insert(ctx context.Context, lead *domain.Lead) (int64, error)
}

// RateLimiter admits or rejects a submission for a client key (the IP).
// Implementations that fail return allowed=true together with the error.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Notifier fans a stored lead out to mail, webhook and event targets. It
// must not block the caller.
type Notifier interface {
	Notify(lead *domain.Lead, form map[string]string)
}
