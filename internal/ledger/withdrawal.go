package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inaiurai/cashback/internal/execution"
	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/money"
	"github.com/inaiurai/cashback/internal/ratelimit"
)

// WithdrawalRequest is a freshly debited, pending withdrawal.
type WithdrawalRequest struct {
	Transaction  *models.Transaction
	BalanceCents int64
}

// Decision is the outcome of approving or rejecting a withdrawal.
type Decision struct {
	Transaction  *models.Transaction
	BalanceCents int64
}

// RequestWithdrawal debits amount from the actor's balance and opens a pending
// withdrawal. The approval channel is created asynchronously.
func (s *Service) RequestWithdrawal(ctx context.Context, actor Actor, amount string) (*WithdrawalRequest, error) {
	if err := s.allow(ctx, actor.UserID, ratelimit.ActionWithdrawal); err != nil {
		return nil, err
	}
	cents, err := money.Parse(amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}

	now := s.now()
	var out WithdrawalRequest
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.Accounts.EnsureTx(ctx, tx, actor.UserID, now); err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}
		acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, actor.UserID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if cents > acc.BalanceCents {
			return &InsufficientBalanceError{BalanceCents: acc.BalanceCents, RequestedCents: cents}
		}
		if cents < s.Policy.MinimumWithdrawalCents {
			return &BelowMinimumError{MinimumCents: s.Policy.MinimumWithdrawalCents}
		}
		balance, err := s.Accounts.DebitTx(ctx, tx, actor.UserID, cents, now)
		if errors.Is(err, pgx.ErrNoRows) {
			return &InsufficientBalanceError{BalanceCents: acc.BalanceCents, RequestedCents: cents}
		}
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		t := &models.Transaction{
			UserID:      actor.UserID,
			AmountCents: cents,
			Type:        models.TxTypeWithdrawal,
			Status:      models.TxStatusPending,
			GuildID:     actor.GuildID,
			CreatedAt:   now,
		}
		if err := s.insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, execution.OpenSurfaceArgs{TransactionID: t.TransactionID, BalanceCents: balance}); err != nil {
			return err
		}
		out = WithdrawalRequest{Transaction: t, BalanceCents: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("withdrawal requested", "user_id", actor.UserID, "transaction_id", out.Transaction.TransactionID, "amount_cents", cents)
	return &out, nil
}

// ApproveWithdrawal completes a pending withdrawal. The balance was already
// debited at request time.
func (s *Service) ApproveWithdrawal(ctx context.Context, actor Actor, transactionID string) (*Decision, error) {
	return s.decide(ctx, actor, transactionID, models.TxStatusCompleted)
}

// RejectWithdrawal refunds a pending withdrawal to the requester's balance.
// total_withdrawn is not reversed.
func (s *Service) RejectWithdrawal(ctx context.Context, actor Actor, transactionID string) (*Decision, error) {
	return s.decide(ctx, actor, transactionID, models.TxStatusRejected)
}

func (s *Service) decide(ctx context.Context, actor Actor, transactionID, status string) (*Decision, error) {
	if !actor.CanManageWithdrawals() {
		return nil, ErrPermissionDenied
	}
	now := s.now()
	var out Decision
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		t, err := s.Transactions.GetForUpdateTx(ctx, tx, transactionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if t.Type != models.TxTypeWithdrawal {
			return ErrNotFound
		}
		if !t.IsPendingWithdrawal() {
			return ErrNotPending
		}
		if err := s.Transactions.DecideTx(ctx, tx, t.TransactionID, status, actor.UserID, now); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotPending
			}
			return fmt.Errorf("update transaction: %w", err)
		}
		t.Status = status
		t.DecidedBy = &actor.UserID
		t.DecidedAt = &now

		event := execution.EventWithdrawalApproved
		var balance int64
		// Lock order is transaction, then account. Progression only follows
		// redemptions, so approval leaves the profile alone.
		if status == models.TxStatusCompleted {
			acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, t.UserID)
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			balance = acc.BalanceCents
		} else {
			event = execution.EventWithdrawalRejected
			balance, err = s.Accounts.RefundTx(ctx, tx, t.UserID, t.AmountCents)
			if err != nil {
				return fmt.Errorf("refund account: %w", err)
			}
		}

		if err := s.enqueue(ctx, tx, execution.FinalizeSurfaceArgs{TransactionID: t.TransactionID}); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, execution.NotifyUserArgs{
			UserID:        t.UserID,
			Event:         event,
			TransactionID: t.TransactionID,
			AmountCents:   t.AmountCents,
			BalanceCents:  balance,
		}); err != nil {
			return err
		}
		out = Decision{Transaction: t, BalanceCents: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("withdrawal decided", "transaction_id", transactionID, "status", status, "decided_by", actor.UserID)
	return &out, nil
}

// authorizeSurfaceAction loads the transaction behind an approval surface and
// checks that actor is its requester or staff.
func (s *Service) authorizeSurfaceAction(ctx context.Context, actor Actor, transactionID string) (*models.Transaction, error) {
	t, err := s.Transactions.GetByID(ctx, transactionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if t.Type != models.TxTypeWithdrawal {
		return nil, ErrNotFound
	}
	if actor.UserID != t.UserID && !actor.CanManageWithdrawals() {
		return nil, ErrPermissionDenied
	}
	return t, nil
}

// Transcript posts a read-only summary of a withdrawal to the staff log channel.
func (s *Service) Transcript(ctx context.Context, actor Actor, transactionID string) error {
	t, err := s.authorizeSurfaceAction(ctx, actor, transactionID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout())
	defer cancel()

	guildID := t.GuildID
	if guildID == "" {
		guildID = actor.GuildID
	}
	channelID, found, err := s.Surfaces.FindTextChannel(ctx, guildID, s.Policy.LogChannelName)
	if err != nil {
		return fmt.Errorf("find log channel: %w", err)
	}
	if !found {
		return ErrMissingLogChannel
	}
	if err := s.Surfaces.PostTranscript(ctx, channelID, t, actor.UserID); err != nil {
		return fmt.Errorf("post transcript: %w", err)
	}
	return nil
}

// CloseSurface hides the approval channel from everyone and makes it read-only
// for the requester. Closing twice is harmless.
func (s *Service) CloseSurface(ctx context.Context, actor Actor, transactionID string) error {
	t, err := s.authorizeSurfaceAction(ctx, actor, transactionID)
	if err != nil {
		return err
	}
	if t.SurfaceChannelID == nil {
		return ErrSurfaceNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout())
	defer cancel()
	if err := s.Surfaces.LockSurface(ctx, t); err != nil {
		return fmt.Errorf("lock surface: %w", err)
	}
	return nil
}
