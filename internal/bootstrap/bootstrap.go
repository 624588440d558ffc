// Package bootstrap holds the wiring shared by the server, worker and relay
// binaries: logging, the PostgreSQL pool, the optional Redis client and the
// relay service.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/pkg/distlock"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/repository/postgres"
	"github.com/ignite/leadfunnel/internal/service/relay"
	"github.com/ignite/leadfunnel/internal/storage"
)

// RelayLockKey is the distributed lock shared by every relay trigger.
const RelayLockKey = "leadfunnel:relay"

// ConfigureLogger applies the log section to the default logger.
func ConfigureLogger(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.Redact())
}

// OpenDB opens and pings the PostgreSQL pool. Statement and idle-transaction
// timeouts are added to the DSN unless it already sets options.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required (set DATABASE_URL)")
	}

	db, err := sql.Open("postgres", withTimeouts(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database at %s: %w", dbHost(cfg.URL), err)
	}
	logger.Info("database connected", "host", dbHost(cfg.URL))
	return db, nil
}

func withTimeouts(dsn string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "connect_timeout") {
		dsn += sep + "connect_timeout=5"
		sep = "&"
	}
	if !strings.Contains(dsn, "options=") {
		dsn += sep + "options=-c%20statement_timeout%3D15000%20-c%20idle_in_transaction_session_timeout%3D15000"
	}
	return dsn
}

// dbHost returns host:port of a URL DSN, never the credentials.
func dbHost(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "(unknown)"
	}
	return u.Host
}

// OpenRedis connects when a URL is configured. A nil client with a nil error
// means Redis is not configured; callers fall back to PostgreSQL.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		logger.Info("redis not configured, using postgres advisory locks")
		return nil, nil
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.URL); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")
	return client, nil
}

// NewRelay builds the relay service with its PostgreSQL repository, the CRM
// sender, the run lock and the optional report store.
func NewRelay(cfg config.RelayConfig, db *sql.DB, rdb *redis.Client, store *storage.Storage) *relay.Service {
	var archiver relay.Archiver
	if store != nil {
		archiver = store
	}
	return relay.NewService(
		postgres.NewRelayRepo(db),
		relay.NewHTTPSender(cfg.APIURL, cfg.Timeout()),
		distlock.NewFactory(rdb, db, RelayLockKey, cfg.LockTTL()),
		archiver,
		relay.Options{
			Enabled:   cfg.Enabled,
			BatchSize: cfg.BatchSize,
			Pause:     cfg.Pause(),
		},
	)
}
