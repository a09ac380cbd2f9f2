// Package db owns the pgx connection pool and the schema migration
// runner. Everything else talks to the database through the embedded
// sqlc.Queries; migrations go through the database/sql shim since they
// predate any pooled traffic.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
)

// Conn is the process-wide database handle: a tuned pgx pool with the
// query layer embedded, so callers reach sqlc methods directly.
type Conn struct {
	pool *pgxpool.Pool
	*sqlc.Queries
}

// New opens a pool against cfg.URL, applying the configured sizing and
// lifetime limits, and verifies connectivity before returning. The
// ping is bounded by cfg.ConnectTimeout so a wedged database fails
// startup instead of hanging it.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("db: parsing database url: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: opening pool: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: pinging database: %w", err)
	}

	return &Conn{pool: pool, Queries: sqlc.New(pool)}, nil
}

func (c *Conn) Close() {
	c.pool.Close()
}

// DB returns a database/sql handle over the same pool, used by the
// migration runner.
func (c *Conn) DB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

// InTx runs fn against a Queries bound to a single transaction,
// committing on nil and rolling back on error or panic.
func (c *Conn) InTx(ctx context.Context, fn func(*sqlc.Queries) error) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(c.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
