package present

import (
	"errors"

	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/money"
)

// GenericFailure is shown for errors outside the domain taxonomy.
const GenericFailure = "❌ An error occurred while processing your request."

// Denial maps a domain error to the message shown to the invoker. known is
// false for unclassified errors, which callers should log.
func Denial(err error) (msg string, known bool) {
	var ibe *ledger.InsufficientBalanceError
	var bme *ledger.BelowMinimumError
	switch {
	case errors.Is(err, ledger.ErrRateLimited):
		return "❌ You've reached the rate limit. Please wait before trying again.", true
	case errors.Is(err, ledger.ErrInvalidCode):
		return "❌ Invalid or already redeemed code.", true
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "❌ Please enter a valid amount with at most two decimal places.", true
	case errors.As(err, &ibe):
		return "❌ Insufficient balance. Your current balance is " + money.Format(ibe.BalanceCents) + ".", true
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "❌ Insufficient balance.", true
	case errors.As(err, &bme):
		return "❌ Minimum withdrawal amount is " + money.Format(bme.MinimumCents) + ".", true
	case errors.Is(err, ledger.ErrBelowMinimum):
		return "❌ Amount is below the minimum withdrawal.", true
	case errors.Is(err, ledger.ErrPermissionDenied):
		return "❌ You don't have permission to do that.", true
	case errors.Is(err, ledger.ErrMissingLogChannel):
		return "❌ Staff log channel not found.", true
	case errors.Is(err, ledger.ErrNotFound):
		return "❌ Not found.", true
	case errors.Is(err, ledger.ErrMissingArgument):
		return "❌ Missing required argument.", true
	case errors.Is(err, ledger.ErrBadArgument):
		return "❌ Invalid argument provided.", true
	case errors.Is(err, ledger.ErrNotPending):
		return "❌ This withdrawal has already been processed.", true
	case errors.Is(err, ledger.ErrSurfaceNotReady):
		return "⏳ The withdrawal channel is still being set up. Try again in a moment.", true
	}
	return GenericFailure, false
}
