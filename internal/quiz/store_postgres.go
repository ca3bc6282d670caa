package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresAttemptStore is a PostgreSQL-backed AttemptStore. It expects the
// quiz_attempts table created by database.Migrate.
type PostgresAttemptStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAttemptStore creates a store on an existing pool.
func NewPostgresAttemptStore(pool *pgxpool.Pool) (*PostgresAttemptStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresAttemptStore{pool: pool}, nil
}

func (s *PostgresAttemptStore) SaveAttempt(ctx context.Context, a Attempt) (string, error) {
	if a.Total <= 0 {
		return "", fmt.Errorf("attempt total must be positive, got %d", a.Total)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	completedAt := a.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (session_id, client_id, topic, difficulty, score, total, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id::text`,
		a.SessionID,
		nullIfEmpty(a.ClientID),
		a.Topic,
		a.Difficulty,
		a.Score,
		a.Total,
		completedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

func (s *PostgresAttemptStore) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, session_id, COALESCE(client_id, ''), topic, difficulty, score, total, completed_at
		 FROM quiz_attempts
		 ORDER BY completed_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attempt, error) {
		var a Attempt
		err := row.Scan(&a.ID, &a.SessionID, &a.ClientID, &a.Topic, &a.Difficulty, &a.Score, &a.Total, &a.CompletedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan attempts: %w", err)
	}
	return attempts, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
