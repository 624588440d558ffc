package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
)

// RelayRepo implements relay.Repository on leads_revolving. Every state
// change is a conditional UPDATE, so concurrent runs cannot both win a lead.
// enviado_api is kept equal to relay_status = 'relayed'.
type RelayRepo struct{ db *sql.DB }

// NewRelayRepo creates a Postgres-backed relay repository.
func NewRelayRepo(db *sql.DB) *RelayRepo { return &RelayRepo{db: db} }

func (r *RelayRepo) ListPending(ctx context.Context, afterID int64, limit int) ([]domain.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+revolvingColumns+`
		FROM leads_revolving
		WHERE relay_status = 'pending' AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanRevolving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *RelayRepo) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads_revolving
		SET relay_status = 'claimed', claimed_at = $2
		WHERE id = $1 AND relay_status = 'pending'
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("claim lead %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim lead %d: %w", id, err)
	}
	return n == 1, nil
}

// MarkRelayed is idempotent: a lead already relayed matches no row and that
// is not an error.
func (r *RelayRepo) MarkRelayed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leads_revolving
		SET relay_status = 'relayed', enviado_api = TRUE, fecha_envio_api = NOW(),
		    claimed_at = NULL, relay_error = ''
		WHERE id = $1 AND relay_status <> 'relayed'
	`, id)
	if err != nil {
		return fmt.Errorf("mark lead %d relayed: %w", id, err)
	}
	return nil
}

func (r *RelayRepo) Release(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leads_revolving
		SET relay_status = 'pending', claimed_at = NULL, relay_error = $2
		WHERE id = $1 AND relay_status = 'claimed'
	`, id, errMsg)
	if err != nil {
		return fmt.Errorf("release lead %d: %w", id, err)
	}
	return nil
}

func (r *RelayRepo) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads_revolving
		SET relay_status = 'pending', claimed_at = NULL, relay_error = 'lease expired'
		WHERE relay_status = 'claimed' AND claimed_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale claims: %w", err)
	}
	return res.RowsAffected()
}
