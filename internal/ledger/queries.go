package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/ratelimit"
)

// HistoryPage is one page of a user's transactions, newest first.
type HistoryPage struct {
	Items      []*models.Transaction
	Page       int
	TotalPages int
	Total      int
}

// ProfileView pairs a user's account with their progression.
type ProfileView struct {
	Account *models.Account
	Profile *models.Profile
}

// CheckBalance returns the actor's account, creating it on first use.
func (s *Service) CheckBalance(ctx context.Context, actor Actor) (*models.Account, error) {
	if err := s.allow(ctx, actor.UserID, ratelimit.ActionBalanceCheck); err != nil {
		return nil, err
	}
	if err := s.Accounts.Ensure(ctx, actor.UserID, s.now()); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	acc, err := s.Accounts.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acc, nil
}

// History returns page (1-based) of the actor's transactions.
func (s *Service) History(ctx context.Context, actor Actor, page int) (*HistoryPage, error) {
	if page < 1 {
		return nil, ErrBadArgument
	}
	if err := s.allow(ctx, actor.UserID, ratelimit.ActionBalanceCheck); err != nil {
		return nil, err
	}
	total, err := s.Transactions.CountByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	items, err := s.Transactions.ListByUser(ctx, actor.UserID, HistoryPageSize, (page-1)*HistoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return &HistoryPage{
		Items:      items,
		Page:       page,
		TotalPages: (total + HistoryPageSize - 1) / HistoryPageSize,
		Total:      total,
	}, nil
}

// Profile returns the profile of targetUserID, or of the actor when empty.
func (s *Service) Profile(ctx context.Context, actor Actor, targetUserID string) (*ProfileView, error) {
	if err := s.allow(ctx, actor.UserID, ratelimit.ActionProfileCheck); err != nil {
		return nil, err
	}
	if targetUserID == "" {
		targetUserID = actor.UserID
	}
	if err := s.Accounts.Ensure(ctx, targetUserID, s.now()); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	acc, err := s.Accounts.GetByID(ctx, targetUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	p, err := s.Profiles.GetByID(ctx, targetUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &ProfileView{Account: acc, Profile: p}, nil
}

// GenerateCode mints a new unredeemed code worth amountCents.
func (s *Service) GenerateCode(ctx context.Context, createdBy string, amountCents int64) (*models.Code, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	c := &models.Code{AmountCents: amountCents, CreatedAt: s.now(), CreatedBy: createdBy}
	for i := 0; i < maxIDAttempts; i++ {
		c.Code = newCode()
		ok, err := s.Codes.Create(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create code: %w", err)
		}
		if ok {
			s.log().Info("code generated", "created_by", createdBy, "amount_cents", amountCents)
			return c, nil
		}
	}
	return nil, errIDsExhausted
}

// ListCodes returns codes newest first. filter is all, active or redeemed;
// empty means all.
func (s *Service) ListCodes(ctx context.Context, filter string) ([]*models.Code, error) {
	switch filter {
	case "":
		filter = models.CodeFilterAll
	case models.CodeFilterAll, models.CodeFilterActive, models.CodeFilterRedeemed:
	default:
		return nil, ErrBadArgument
	}
	return s.Codes.List(ctx, filter, ListLimit)
}

// ListWithdrawals returns withdrawals in status, newest first. Empty means pending.
func (s *Service) ListWithdrawals(ctx context.Context, status string) ([]*models.Transaction, error) {
	switch status {
	case "":
		status = models.TxStatusPending
	case models.TxStatusPending, models.TxStatusCompleted, models.TxStatusRejected:
	default:
		return nil, ErrBadArgument
	}
	return s.Transactions.ListWithdrawals(ctx, status, ListLimit)
}

// Stats aggregates totals across all accounts, codes and transactions.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	if err := s.Accounts.Totals(ctx, &st); err != nil {
		return nil, fmt.Errorf("account totals: %w", err)
	}
	if err := s.Codes.Counts(ctx, &st); err != nil {
		return nil, fmt.Errorf("code counts: %w", err)
	}
	if err := s.Transactions.Counts(ctx, &st); err != nil {
		return nil, fmt.Errorf("transaction counts: %w", err)
	}
	return &st, nil
}
