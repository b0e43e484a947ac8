package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/cashback/internal/models"
)

const accountColumns = `user_id, balance_cents, total_earned_cents, total_withdrawn_cents, created_at, last_transaction_at, transaction_count`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.UserID, &a.BalanceCents, &a.TotalEarnedCents, &a.TotalWithdrawnCents, &a.CreatedAt, &a.LastTransactionAt, &a.TransactionCount)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureTx creates the account and its profile if they do not exist yet.
func (r *AccountRepo) EnsureTx(ctx context.Context, tx pgx.Tx, userID string, now time.Time) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO accounts (user_id, created_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO profiles (user_id, last_activity_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now)
	return err
}

// Ensure is EnsureTx in its own transaction.
func (r *AccountRepo) Ensure(ctx context.Context, userID string, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := r.EnsureTx(ctx, tx, userID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AccountRepo) GetByID(ctx context.Context, userID string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID))
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
}

// CreditTx adds earned funds and returns the new balance.
func (r *AccountRepo) CreditTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64, now time.Time) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance_cents = balance_cents + $1,
		    total_earned_cents = total_earned_cents + $1,
		    last_transaction_at = $3,
		    transaction_count = transaction_count + 1
		WHERE user_id = $2
		RETURNING balance_cents
	`, amountCents, userID, now).Scan(&newBalance)
	return newBalance, err
}

// DebitTx atomically withdraws amount if balance >= amount. Returns
// pgx.ErrNoRows when the balance is too low.
func (r *AccountRepo) DebitTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64, now time.Time) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance_cents = balance_cents - $1,
		    total_withdrawn_cents = total_withdrawn_cents + $1,
		    last_transaction_at = $3,
		    transaction_count = transaction_count + 1
		WHERE user_id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amountCents, userID, now).Scan(&newBalance)
	return newBalance, err
}

// RefundTx returns a rejected withdrawal to the balance. total_withdrawn is
// left as is.
func (r *AccountRepo) RefundTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + $1
		WHERE user_id = $2
		RETURNING balance_cents
	`, amountCents, userID).Scan(&newBalance)
	return newBalance, err
}

// Totals fills the account aggregates of s.
func (r *AccountRepo) Totals(ctx context.Context, s *models.Stats) error {
	return r.pool.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(sum(total_earned_cents), 0),
		       COALESCE(sum(total_withdrawn_cents), 0),
		       COALESCE(sum(balance_cents), 0)
		FROM accounts
	`).Scan(&s.TotalUsers, &s.TotalEarnedCents, &s.TotalWithdrawnCents, &s.CurrentBalanceCents)
}
