package ledger

import (
	"errors"
	"fmt"

	"github.com/inaiurai/cashback/internal/money"
)

// Domain errors. Handlers map each to a user-visible denial.
var (
	ErrRateLimited         = errors.New("rate limited")
	ErrInvalidCode         = errors.New("invalid or already redeemed code")
	ErrInvalidAmount       = money.ErrInvalidAmount
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrMissingLogChannel   = errors.New("staff log channel not found")
	ErrNotFound            = errors.New("not found")
	ErrMissingArgument     = errors.New("missing argument")
	ErrBadArgument         = errors.New("bad argument")
	ErrNotPending          = errors.New("withdrawal is no longer pending")
	ErrSurfaceNotReady     = errors.New("approval channel not created yet")
)

// InsufficientBalanceError carries the balance seen when a withdrawal was refused.
type InsufficientBalanceError struct {
	BalanceCents   int64
	RequestedCents int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, requested %s", money.Format(e.BalanceCents), money.Format(e.RequestedCents))
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// BelowMinimumError carries the configured minimum withdrawal.
type BelowMinimumError struct {
	MinimumCents int64
}

func (e *BelowMinimumError) Error() string {
	return "amount below minimum withdrawal of " + money.Format(e.MinimumCents)
}

func (e *BelowMinimumError) Is(target error) bool { return target == ErrBelowMinimum }
