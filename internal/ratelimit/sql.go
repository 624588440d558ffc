package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLLimiter stores one row per accepted request in rate_limiting and prunes
// rows older than the retention on every call.
type SQLLimiter struct {
	db       *sql.DB
	settings Settings
	now      func() time.Time
}

// NewSQLLimiter creates a limiter backed by the rate_limiting table.
func NewSQLLimiter(db *sql.DB, s Settings) *SQLLimiter {
	return &SQLLimiter{db: db, settings: s, now: time.Now}
}

// Allow prunes expired rows, counts the requests for ip inside the window and
// records this one when it is under the limit.
func (l *SQLLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	now := l.now().Unix()

	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM rate_limiting WHERE timestamp < $1`,
		now-int64(l.settings.Retention/time.Second),
	); err != nil {
		return true, fmt.Errorf("ratelimit: prune: %w", err)
	}

	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limiting WHERE ip_address = $1 AND timestamp > $2`,
		ip, now-int64(l.settings.Window/time.Second),
	).Scan(&count)
	if err != nil {
		return true, fmt.Errorf("ratelimit: count: %w", err)
	}

	if count >= l.settings.MaxRequests {
		return false, nil
	}

	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO rate_limiting (ip_address, timestamp) VALUES ($1, $2)`,
		ip, now,
	); err != nil {
		return true, fmt.Errorf("ratelimit: record: %w", err)
	}
	return true, nil
}
