package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/cashback/internal/models"
)

const codeColumns = `code, amount_cents, redeemed, created_at, created_by, redeemed_by, redeemed_at`

type CodeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) *CodeRepo {
	return &CodeRepo{pool: pool}
}

// Create inserts c unless the code already exists. It reports whether the row
// was inserted so callers can regenerate on collision.
func (r *CodeRepo) Create(ctx context.Context, c *models.Code) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO codes (code, amount_cents, created_at, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`, c.Code, c.AmountCents, c.CreatedAt, c.CreatedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ConsumeTx marks an unredeemed code redeemed and returns its amount. Returns
// pgx.ErrNoRows if the code does not exist or was already redeemed.
func (r *CodeRepo) ConsumeTx(ctx context.Context, tx pgx.Tx, code, userID string, now time.Time) (amountCents int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE codes SET redeemed = true, redeemed_by = $2, redeemed_at = $3
		WHERE code = $1 AND NOT redeemed
		RETURNING amount_cents
	`, code, userID, now).Scan(&amountCents)
	return amountCents, err
}

// List returns codes newest first, filtered by models.CodeFilter*.
func (r *CodeRepo) List(ctx context.Context, filter string, limit int) ([]*models.Code, error) {
	where := ""
	switch filter {
	case models.CodeFilterActive:
		where = "WHERE NOT redeemed"
	case models.CodeFilterRedeemed:
		where = "WHERE redeemed"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+codeColumns+` FROM codes `+where+`
		ORDER BY created_at DESC, code
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Code
	for rows.Next() {
		var c models.Code
		if err := rows.Scan(&c.Code, &c.AmountCents, &c.Redeemed, &c.CreatedAt, &c.CreatedBy, &c.RedeemedBy, &c.RedeemedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// Counts fills the code aggregates of s.
func (r *CodeRepo) Counts(ctx context.Context, s *models.Stats) error {
	return r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE NOT redeemed) FROM codes
	`).Scan(&s.TotalCodes, &s.ActiveCodes)
}
