// Package database owns the orchestrator's two Postgres connections: an
// async pgxpool.Pool used by the tick loop and task executors, and a sqlx
// connection over lib/pq used by the read-side store (internal/store). This
// split mirrors the original implementation's async_database_url (SQLAlchemy
// asyncpg engine) vs database_url (sync engine, used only for Alembic) split
// in orch.config/orch.database.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	maxPoolConns        = 60
	minPoolConns        = 0
	maxConnLifetime     = 30 * time.Minute
	poolAcquireTimeout  = 120 * time.Second
)

// NewPool opens the async connection pool used for all flow/task
// persistence during orchestration. dsn is Config.AsyncDatabaseURL.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	cfg.MaxConns = maxPoolConns
	cfg.MinConns = minPoolConns
	cfg.MaxConnLifetime = maxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pool: %w", err)
	}

	return pool, nil
}

// AcquireTimeout bounds how long a caller should wait for a connection from
// the pool before giving up, per spec §5's pool_size/max_overflow/timeout
// triple.
func AcquireTimeout() time.Duration {
	return poolAcquireTimeout
}

// AcquireContext bounds ctx by AcquireTimeout for a single pool.Begin call,
// per spec §5: a pool exhausted for longer than that should fail the
// acquisition instead of blocking its caller indefinitely. The caller must
// call the returned cancel once Begin returns and must not reuse the bounded
// context for work beyond the Begin call itself.
func AcquireContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, poolAcquireTimeout)
}

// RollbackUnlessCommitted rolls tx back unless committed reports true,
// shared by every pgxpool-backed caller (internal/advancer,
// internal/scheduler) that begins a transaction and defers its cleanup,
// avoiding a harmless-but-noisy Rollback call immediately after a
// successful Commit.
func RollbackUnlessCommitted(ctx context.Context, tx pgx.Tx, committed *bool) {
	if !*committed {
		tx.Rollback(ctx)
	}
}

// NewReadDB opens the sqlx connection used by the read-side flow store. dsn
// is Config.DatabaseURL (the sync DSN); lib/pq is the driver, matching the
// rest of the pack's sqlx+lib/pq pairing.
func NewReadDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}

	return db, nil
}
