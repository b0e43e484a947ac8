package models

import "time"

// Account is a user's cashback balance record. Amounts are in cents.
type Account struct {
	UserID              string     `json:"user_id"`
	BalanceCents        int64      `json:"balance_cents"`
	TotalEarnedCents    int64      `json:"total_earned_cents"`
	TotalWithdrawnCents int64      `json:"total_withdrawn_cents"`
	CreatedAt           time.Time  `json:"created_at"`
	LastTransactionAt   *time.Time `json:"last_transaction_at,omitempty"`
	TransactionCount    int        `json:"transaction_count"`
}

// Profile is the gamification state derived from completed transactions.
type Profile struct {
	UserID           string    `json:"user_id"`
	Level            int       `json:"level"`
	XP               int64     `json:"xp"`
	Rank             string    `json:"rank"`
	Achievements     []string  `json:"achievements"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	TransactionCount int       `json:"transaction_count"`
}

// Stats aggregates totals across every account.
type Stats struct {
	TotalUsers          int64 `json:"total_users"`
	TotalTransactions   int64 `json:"total_transactions"`
	TotalCodes          int64 `json:"total_codes"`
	ActiveCodes         int64 `json:"active_codes"`
	PendingWithdrawals  int64 `json:"pending_withdrawals"`
	TotalEarnedCents    int64 `json:"total_earned_cents"`
	TotalWithdrawnCents int64 `json:"total_withdrawn_cents"`
	CurrentBalanceCents int64 `json:"current_balance_cents"`
}
