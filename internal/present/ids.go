// Package present builds the Discord payloads shown to users: embeds, buttons,
// modals and denial notices.
package present

import "strings"

// Component and modal custom ids. Withdrawal buttons embed the transaction id
// so they keep working across restarts.
const (
	PanelRedeemCode   = "panel:redeem_code"
	PanelCheckBalance = "panel:check_balance"
	PanelWithdraw     = "panel:withdraw"

	ModalRedeemCode = "modal:redeem_code"
	ModalWithdraw   = "modal:withdraw"

	FieldCode   = "code"
	FieldAmount = "amount"

	withdrawalPrefix = "withdrawal:"
)

// Withdrawal surface actions.
const (
	ActionApprove    = "approve"
	ActionReject     = "reject"
	ActionTranscript = "transcript"
	ActionClose      = "close"
)

// WithdrawalButtonID returns the custom id of a surface button.
func WithdrawalButtonID(action, transactionID string) string {
	return withdrawalPrefix + action + ":" + transactionID
}

// ParseWithdrawalButtonID splits a surface button id into action and
// transaction id.
func ParseWithdrawalButtonID(customID string) (action, transactionID string, ok bool) {
	rest, found := strings.CutPrefix(customID, withdrawalPrefix)
	if !found {
		return "", "", false
	}
	action, transactionID, found = strings.Cut(rest, ":")
	if !found || action == "" || transactionID == "" {
		return "", "", false
	}
	switch action {
	case ActionApprove, ActionReject, ActionTranscript, ActionClose:
		return action, transactionID, true
	}
	return "", "", false
}

// SurfaceChannelName is the name of a withdrawal's private channel.
func SurfaceChannelName(transactionID string) string {
	return "withdrawal-" + strings.ToLower(transactionID)
}
