package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
)

// EventRepo stores lead events. It implements tracking.Recorder.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event store.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Record inserts ev. Redelivered events (same id) are ignored.
func (r *EventRepo) Record(ctx context.Context, ev domain.LeadEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_events (event_id, event_type, funnel, lead_id, token, ip_address, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.ID, string(ev.Type), string(ev.Funnel), nullInt64(ev.LeadID), nullString(ev.Token),
		ev.IPAddress, ev.UserAgent, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// PruneBefore deletes events older than cutoff.
func (r *EventRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lead_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
