// Package db provides PostgreSQL access for profiles, the document registry
// and the entries that feed the completion score.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// querier is the subset of pgx shared by the pool and a transaction, so read
// helpers can run either inside or outside InTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config holds connection settings.
type Config struct {
	DatabaseURL   string
	MaxConns      int32
	TxMaxAttempts int // attempts per InTx when a transaction conflicts; default 3
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool          *pgxpool.Pool
	txMaxAttempts int
	log           *zap.Logger
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDB(pool, cfg.TxMaxAttempts, log), nil
}

func newDB(pool *pgxpool.Pool, attempts int, log *zap.Logger) *DB {
	if attempts < 1 {
		attempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{pool: pool, txMaxAttempts: attempts, log: log.Named("db")}
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// nullIfEmpty returns nil if the string is empty, otherwise a pointer to the string
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
