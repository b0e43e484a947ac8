// Package ratelimit gates user actions with per-user sliding windows. State
// lives in its own store, separate from the ledger.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Actions with a rate limit.
const (
	ActionCodeRedeem   = "code_redeem"
	ActionWithdrawal   = "withdrawal"
	ActionBalanceCheck = "balance_check"
	ActionProfileCheck = "profile_check"
)

// Rule allows at most Max attempts inside any trailing Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// DefaultRules are the production thresholds.
var DefaultRules = map[string]Rule{
	ActionCodeRedeem:   {Max: 5, Window: time.Minute},
	ActionWithdrawal:   {Max: 3, Window: time.Hour},
	ActionBalanceCheck: {Max: 10, Window: time.Minute},
	ActionProfileCheck: {Max: 10, Window: time.Minute},
}

// Store counts and records attempts. Acquire must be atomic per (user, action):
// it records an attempt at now only when fewer than rule.Max attempts exist in
// (now-rule.Window, now], and reports whether it did.
type Store interface {
	Acquire(ctx context.Context, userID, action string, rule Rule, now time.Time) (bool, error)
}

// Limiter applies Rules against a Store.
type Limiter struct {
	store Store
	rules map[string]Rule
	now   func() time.Time
}

// New returns a Limiter. A nil rules map means DefaultRules.
func New(store Store, rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &Limiter{store: store, rules: rules, now: time.Now}
}

// Allow reports whether userID may perform action now. Allowed attempts are
// recorded; denied ones are not. Actions without a rule are always allowed.
func (l *Limiter) Allow(ctx context.Context, userID, action string) (bool, error) {
	rule, ok := l.rules[action]
	if !ok {
		return true, nil
	}
	allowed, err := l.store.Acquire(ctx, userID, action, rule, l.now())
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", action, err)
	}
	return allowed, nil
}
