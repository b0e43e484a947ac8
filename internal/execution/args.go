package execution

import (
	"github.com/riverqueue/river"

	"github.com/inaiurai/cashback/internal/models"
)

const (
	EventWithdrawalApproved = models.EventWithdrawalApproved
	EventWithdrawalRejected = models.EventWithdrawalRejected
)

const notifyMaxAttempts = 5

// OpenSurfaceArgs creates the private approval channel for a pending withdrawal.
type OpenSurfaceArgs struct {
	TransactionID string `json:"transaction_id"`
	BalanceCents  int64  `json:"balance_cents"`
}

func (OpenSurfaceArgs) Kind() string { return "open_withdrawal_surface" }

// FinalizeSurfaceArgs rewrites the approval message after a decision and
// removes its buttons.
type FinalizeSurfaceArgs struct {
	TransactionID string `json:"transaction_id"`
}

func (FinalizeSurfaceArgs) Kind() string { return "finalize_withdrawal_surface" }

// NotifyUserArgs sends a direct message about a withdrawal decision.
type NotifyUserArgs struct {
	UserID        string `json:"user_id"`
	Event         string `json:"event"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	BalanceCents  int64  `json:"balance_cents"`
}

func (NotifyUserArgs) Kind() string { return "notify_user" }

func (NotifyUserArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: notifyMaxAttempts}
}

func (a NotifyUserArgs) notification() models.Notification {
	return models.Notification{
		UserID:        a.UserID,
		Event:         a.Event,
		TransactionID: a.TransactionID,
		AmountCents:   a.AmountCents,
		BalanceCents:  a.BalanceCents,
	}
}
