// Package repository owns the PostgreSQL connection pool and every
// mutation/read path into the tables of the data model (§3): all writes
// funnel through here, and it owns transaction boundaries.
package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(dbURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse db url: %w", err)
	}

	if maxConnStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxConnStr != "" {
		if maxConn, err := strconv.Atoi(maxConnStr); err == nil {
			cfg.MaxConns = int32(maxConn)
		}
	}
	if minConnStr := os.Getenv("DB_MAX_IDLE_CONNS"); minConnStr != "" {
		if minConn, err := strconv.Atoi(minConnStr); err == nil {
			cfg.MinConns = int32(minConn)
		}
	}

	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Migrate(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := r.db.Exec(context.Background(), string(content)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	r.db.Close()
}

// TerminateIdleConnections kills non-active connections from previous
// backend instances so a redeploy doesn't leave DDL blocked on stale
// locks.
func (r *Repository) TerminateIdleConnections(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = current_database()
			  AND pid <> pg_backend_pid()
			  AND state != 'active'
		) t
	`).Scan(&count)
	return count, err
}

// GetLastSyncBlock returns the singleton cursor, or 0 if unset.
func (r *Repository) GetLastSyncBlock(ctx context.Context) (uint64, error) {
	var height uint64
	err := r.db.QueryRow(ctx, "SELECT block_number FROM last_sync_block LIMIT 1").Scan(&height)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return height, nil
}

func (r *Repository) upsertLastSyncBlockTx(ctx context.Context, tx pgx.Tx, height uint64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO last_sync_block (singleton, block_number) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET block_number = EXCLUDED.block_number`,
		height,
	)
	return err
}

// CommitCursorTx advances the cursor within an already-open transaction,
// so a window's events and its cursor advance land in the same commit.
func (r *Repository) CommitCursorTx(ctx context.Context, tx pgx.Tx, height uint64) error {
	return r.upsertLastSyncBlockTx(ctx, tx, height)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back otherwise. Mirrors the teacher's begin/defer-rollback/commit shape
// used throughout postgres.go's SaveBatch.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
