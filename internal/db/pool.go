// Package db provides the Postgres-backed ledger store. Account and guild
// state is kept as one jsonb document per row; every mutation runs in a
// serializable transaction with row locks, retried on serialization failure.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema when missing. Safe to run at every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id   text PRIMARY KEY,
			data jsonb NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guilds (
			id       text PRIMARY KEY,
			name_key text NOT NULL UNIQUE,
			data     jsonb NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   text PRIMARY KEY,
			value text NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
