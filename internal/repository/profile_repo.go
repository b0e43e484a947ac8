package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/cashback/internal/models"
)

const profileColumns = `user_id, level, xp, rank_name, achievements, last_activity_at, transaction_count`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.UserID, &p.Level, &p.XP, &p.Rank, &p.Achievements, &p.LastActivityAt, &p.TransactionCount); err != nil {
		return nil, err
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	return &p, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

// GetForUpdateTx locks the profile row. Call within a transaction.
func (r *ProfileRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, userID string) (*models.Profile, error) {
	return scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID))
}

// SaveTx writes the progression fields of p.
func (r *ProfileRepo) SaveTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error {
	_, err := tx.Exec(ctx, `
		UPDATE profiles
		SET level = $2, xp = $3, rank_name = $4, achievements = $5, last_activity_at = $6, transaction_count = $7
		WHERE user_id = $1
	`, p.UserID, p.Level, p.XP, p.Rank, p.Achievements, p.LastActivityAt, p.TransactionCount)
	return err
}
