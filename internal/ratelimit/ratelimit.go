// Package ratelimit caps lead submissions per client IP over a rolling window.
//
// Two backends share the Limiter contract: SQLLimiter keeps one row per
// accepted request in the rate_limiting table, RedisLimiter keeps a sorted
// set per IP. Both fail open: when the store errors, Allow returns true
// together with the error so the caller can log it and proceed.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter admits or rejects a request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Settings bounds a limiter. Retention only applies to SQLLimiter.
type Settings struct {
	MaxRequests int
	Window      time.Duration
	Retention   time.Duration
}

// New picks the Redis backend when asked for and a client is available,
// otherwise the SQL backend.
func New(backend string, db *sql.DB, rdb *redis.Client, s Settings) (Limiter, error) {
	switch backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("ratelimit: redis backend selected but redis is not configured")
		}
		return NewRedisLimiter(rdb, s), nil
	case "sql", "":
		if db == nil {
			return nil, fmt.Errorf("ratelimit: sql backend requires a database")
		}
		return NewSQLLimiter(db, s), nil
	default:
		return nil, fmt.Errorf("ratelimit: unknown backend %q", backend)
	}
}
