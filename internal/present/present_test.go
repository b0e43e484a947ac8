package present

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/models"
)

func TestWithdrawalButtonID_RoundTrip(t *testing.T) {
	for _, action := range []string{ActionApprove, ActionReject, ActionTranscript, ActionClose} {
		id := WithdrawalButtonID(action, "ABCDE12345")
		gotAction, gotTx, ok := ParseWithdrawalButtonID(id)
		if !ok || gotAction != action || gotTx != "ABCDE12345" {
			t.Errorf("%s: got (%q, %q, %v)", id, gotAction, gotTx, ok)
		}
	}
	for _, bad := range []string{"", "withdrawal:", "withdrawal:approve", "withdrawal:approve:", "withdrawal:pay:ABCDE12345", "panel:withdraw"} {
		if _, _, ok := ParseWithdrawalButtonID(bad); ok {
			t.Errorf("%q should not parse", bad)
		}
	}
	if len(WithdrawalButtonID(ActionTranscript, "ABCDE12345")) > 100 {
		t.Error("custom ids are limited to 100 characters")
	}
}

func TestSurfaceChannelName(t *testing.T) {
	if got := SurfaceChannelName("ABCDE12345"); got != "withdrawal-abcde12345" {
		t.Errorf("got %q", got)
	}
}

func TestDenial(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ledger.ErrRateLimited, "rate limit"},
		{ledger.ErrInvalidCode, "Invalid or already redeemed"},
		{fmt.Errorf("wrap: %w", ledger.ErrInvalidAmount), "valid amount"},
		{&ledger.InsufficientBalanceError{BalanceCents: 600, RequestedCents: 1000}, "$6.00"},
		{&ledger.BelowMinimumError{MinimumCents: 100}, "$1.00"},
		{ledger.ErrPermissionDenied, "permission"},
		{ledger.ErrMissingLogChannel, "log channel"},
		{ledger.ErrNotFound, "Not found"},
		{ledger.ErrMissingArgument, "Missing required"},
		{ledger.ErrBadArgument, "Invalid argument"},
		{ledger.ErrNotPending, "already been processed"},
		{ledger.ErrSurfaceNotReady, "being set up"},
	}
	for _, tc := range cases {
		msg, known := Denial(tc.err)
		if !known || !strings.Contains(msg, tc.want) {
			t.Errorf("Denial(%v) = (%q, %v), want substring %q", tc.err, msg, known, tc.want)
		}
	}
	if msg, known := Denial(errors.New("connection reset")); known || msg != GenericFailure {
		t.Errorf("unknown error: got (%q, %v)", msg, known)
	}
}

func TestHistoryEmbed(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	page := &ledger.HistoryPage{
		Items: []*models.Transaction{
			{TransactionID: "AAAAAAAAAA", AmountCents: 400, Type: models.TxTypeWithdrawal, Status: models.TxStatusPending, CreatedAt: now},
			{TransactionID: "BBBBBBBBBB", AmountCents: 1000, Type: models.TxTypeCodeRedeem, Status: models.TxStatusCompleted, CreatedAt: now},
		},
		Page: 1, TotalPages: 3, Total: 11,
	}
	e := HistoryEmbed("1001", page, now)
	if len(e.Fields) != 2 {
		t.Fatalf("fields: %d", len(e.Fields))
	}
	if !strings.Contains(e.Fields[0].Value, "-$4.00") || !strings.Contains(e.Fields[1].Value, "+$10.00") {
		t.Errorf("signs: %q / %q", e.Fields[0].Value, e.Fields[1].Value)
	}
	if e.Footer.Text != "Page 1/3 • Cashback System" {
		t.Errorf("footer: %q", e.Footer.Text)
	}
}

func TestFinalSurfaceEmbed(t *testing.T) {
	staff := "9001"
	tx := &models.Transaction{TransactionID: "AAAAAAAAAA", UserID: "1001", AmountCents: 300, Status: models.TxStatusRejected, DecidedBy: &staff}
	e := FinalSurfaceEmbed(tx, time.Now())
	if e.Title != "💳 Withdrawal Rejected" || e.Color != colorRed {
		t.Errorf("title=%q color=%x", e.Title, e.Color)
	}
	if last := e.Fields[len(e.Fields)-1]; last.Value != "<@9001>" {
		t.Errorf("decided by field: %+v", last)
	}
}

func TestComponents(t *testing.T) {
	if len(SurfaceComponents("AAAAAAAAAA")) != 1 || len(PanelComponents()) != 1 {
		t.Error("expected one action row each")
	}
	if RedeemModal().CustomID != ModalRedeemCode || WithdrawModal().CustomID != ModalWithdraw {
		t.Error("modal ids")
	}
}
