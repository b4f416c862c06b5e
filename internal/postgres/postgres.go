// Package postgres implements the score store and firehose sub-state
// persistence on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the schema. Statements are idempotent so reruns on
// startup are safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			feed TEXT NOT NULL,
			uri TEXT NOT NULL,
			cid TEXT NOT NULL,
			first_indexed BIGINT NOT NULL,
			last_scored BIGINT NOT NULL DEFAULT 0,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			mod INTEGER NOT NULL DEFAULT 0,
			first_word TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (feed, uri)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_feed_word_score ON posts (feed, first_word, score DESC, first_indexed DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_feed_first_indexed ON posts (feed, first_indexed)`,
		`CREATE TABLE IF NOT EXISTS sub_state (
			service TEXT PRIMARY KEY,
			cursor BIGINT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
