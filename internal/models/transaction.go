package models

import "time"

// Transaction type and status enums.
const (
	TxTypeCodeRedeem = "code_redeem"
	TxTypeWithdrawal = "withdrawal"

	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
	TxStatusRejected  = "rejected"
)

// Code status filters accepted by code listings.
const (
	CodeFilterAll      = "all"
	CodeFilterActive   = "active"
	CodeFilterRedeemed = "redeemed"
)

// Code is a one-time redeemable token granting a fixed credit.
type Code struct {
	Code        string     `json:"code"`
	AmountCents int64      `json:"amount_cents"`
	Redeemed    bool       `json:"redeemed"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by"`
	RedeemedBy  *string    `json:"redeemed_by,omitempty"`
	RedeemedAt  *time.Time `json:"redeemed_at,omitempty"`
}

// Transaction is the audit record of a balance-affecting event. Only the
// status of a withdrawal changes after insert (pending -> completed|rejected).
type Transaction struct {
	TransactionID    string     `json:"transaction_id"`
	UserID           string     `json:"user_id"`
	AmountCents      int64      `json:"amount_cents"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	GuildID          string     `json:"guild_id"`
	SurfaceChannelID *string    `json:"surface_channel_id,omitempty"`
	SurfaceMessageID *string    `json:"surface_message_id,omitempty"`
	DecidedBy        *string    `json:"decided_by,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsPendingWithdrawal reports whether staff may still decide the transaction.
func (t *Transaction) IsPendingWithdrawal() bool {
	return t.Type == TxTypeWithdrawal && t.Status == TxStatusPending
}

// WithdrawalSurface carries what the gateway needs to open an approval channel.
type WithdrawalSurface struct {
	TransactionID string
	UserID        string
	GuildID       string
	AmountCents   int64
	BalanceCents  int64
}

// Notification events delivered to a requester.
const (
	EventWithdrawalApproved = "withdrawal_approved"
	EventWithdrawalRejected = "withdrawal_rejected"
)

// Notification is a direct message about a withdrawal decision.
type Notification struct {
	UserID        string
	Event         string
	TransactionID string
	AmountCents   int64
	BalanceCents  int64
}
