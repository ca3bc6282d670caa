package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS quiz_attempts (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id   TEXT NOT NULL,
		client_id    TEXT,
		topic        TEXT NOT NULL,
		difficulty   TEXT NOT NULL,
		score        INTEGER NOT NULL CHECK (score >= 0),
		total        INTEGER NOT NULL CHECK (total > 0 AND score <= total),
		completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_attempts_completed_at_idx ON quiz_attempts (completed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS quiz_events (
		id         BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		client_id  TEXT,
		event_type TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_events_session_idx ON quiz_events (session_id, created_at)`,
}

// Migrate applies the schema to pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
