package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/ratelimit"
)

// Redemption is the outcome of a successful code redemption.
type Redemption struct {
	TransactionID string
	AmountCents   int64
	BalanceCents  int64
	Profile       models.Profile
}

// RedeemCode credits the value of an unredeemed code to the actor. Codes match
// exactly and case-sensitively after trimming surrounding space.
func (s *Service) RedeemCode(ctx context.Context, actor Actor, code string) (*Redemption, error) {
	if err := s.allow(ctx, actor.UserID, ratelimit.ActionCodeRedeem); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingArgument
	}

	now := s.now()
	var out Redemption
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.Accounts.EnsureTx(ctx, tx, actor.UserID, now); err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}
		if _, err := s.Accounts.GetByIDForUpdate(ctx, tx, actor.UserID); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		amount, err := s.Codes.ConsumeTx(ctx, tx, code, actor.UserID, now)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidCode
		}
		if err != nil {
			return fmt.Errorf("consume code: %w", err)
		}
		balance, err := s.Accounts.CreditTx(ctx, tx, actor.UserID, amount, now)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		t := &models.Transaction{
			UserID:      actor.UserID,
			AmountCents: amount,
			Type:        models.TxTypeCodeRedeem,
			Status:      models.TxStatusCompleted,
			GuildID:     actor.GuildID,
			CreatedAt:   now,
		}
		if err := s.insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		p, err := s.advanceProfile(ctx, tx, actor.UserID, amount, now)
		if err != nil {
			return err
		}
		out = Redemption{TransactionID: t.TransactionID, AmountCents: amount, BalanceCents: balance, Profile: *p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("code redeemed", "user_id", actor.UserID, "transaction_id", out.TransactionID, "amount_cents", out.AmountCents)
	return &out, nil
}
