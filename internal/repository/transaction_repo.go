package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/cashback/internal/models"
)

const transactionColumns = `transaction_id, user_id, amount_cents, tx_type, status, guild_id, surface_channel_id, surface_message_id, decided_by, decided_at, created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.TransactionID, &t.UserID, &t.AmountCents, &t.Type, &t.Status, &t.GuildID,
		&t.SurfaceChannelID, &t.SurfaceMessageID, &t.DecidedBy, &t.DecidedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateTx inserts t unless its id is taken, reporting whether it was inserted.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO transactions (transaction_id, user_id, amount_cents, tx_type, status, guild_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id) DO NOTHING
	`, t.TransactionID, t.UserID, t.AmountCents, t.Type, t.Status, t.GuildID, t.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, id))
}

// GetForUpdateTx locks the transaction row. Call within a transaction.
func (r *TransactionRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (*models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1 FOR UPDATE`, id))
}

// DecideTx moves a pending transaction to status. Returns pgx.ErrNoRows if it
// is no longer pending.
func (r *TransactionRepo) DecideTx(ctx context.Context, tx pgx.Tx, id, status, decidedBy string, now time.Time) error {
	var got string
	return tx.QueryRow(ctx, `
		UPDATE transactions SET status = $2, decided_by = $3, decided_at = $4
		WHERE transaction_id = $1 AND status = 'pending'
		RETURNING status
	`, id, status, decidedBy, now).Scan(&got)
}

// AttachSurface records the approval channel and message of a withdrawal.
func (r *TransactionRepo) AttachSurface(ctx context.Context, id, channelID, messageID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE transactions SET surface_channel_id = $2, surface_message_id = $3
		WHERE transaction_id = $1
	`, id, channelID, messageID)
	return err
}

// ListByUser returns a page of the user's history, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, transaction_id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// ListWithdrawals returns withdrawals in the given status, newest first.
func (r *TransactionRepo) ListWithdrawals(ctx context.Context, status string, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE tx_type = 'withdrawal' AND status = $1
		ORDER BY created_at DESC, transaction_id
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Counts fills the transaction aggregates of s.
func (r *TransactionRepo) Counts(ctx context.Context, s *models.Stats) error {
	return r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE tx_type = 'withdrawal' AND status = 'pending')
		FROM transactions
	`).Scan(&s.TotalTransactions, &s.PendingWithdrawals)
}
