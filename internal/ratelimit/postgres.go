package ratelimit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps attempts in the rate_limit_events table. A transaction
// scoped advisory lock on (user, action) serializes count-and-record.
type PostgresStore struct {
	pool TxBeginner
}

func NewPostgresStore(pool TxBeginner) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Acquire(ctx context.Context, userID, action string, rule Rule, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID+":"+action); err != nil {
		return false, err
	}
	cutoff := now.Add(-rule.Window)
	// Rows outside the window can never count again.
	if _, err := tx.Exec(ctx, `
		DELETE FROM rate_limit_events WHERE user_id = $1 AND action = $2 AND occurred_at <= $3
	`, userID, action, cutoff); err != nil {
		return false, err
	}
	var n int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM rate_limit_events WHERE user_id = $1 AND action = $2 AND occurred_at > $3
	`, userID, action, cutoff).Scan(&n); err != nil {
		return false, err
	}
	if n >= rule.Max {
		return false, tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO rate_limit_events (user_id, action, occurred_at) VALUES ($1, $2, $3)
	`, userID, action, now); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
