package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/inaiurai/cashback/internal/models"
)

const defaultTimeout = 30 * time.Second

var errSurfaceNotAttached = errors.New("approval surface not attached yet")

// SurfaceGateway creates and finalizes withdrawal approval channels.
type SurfaceGateway interface {
	OpenWithdrawalSurface(ctx context.Context, s models.WithdrawalSurface) (channelID, messageID string, err error)
	FinalizeWithdrawalSurface(ctx context.Context, t *models.Transaction) error
}

// Notifier delivers direct messages to users.
type Notifier interface {
	NotifyUser(ctx context.Context, n models.Notification) error
}

// TransactionStore is the slice of the transaction repository the workers use.
type TransactionStore interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	AttachSurface(ctx context.Context, id, channelID, messageID string) error
}

func timeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return defaultTimeout
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func loadTransaction(ctx context.Context, store TransactionStore, id string) (*models.Transaction, error) {
	t, err := store.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, river.JobCancel(fmt.Errorf("transaction %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", id, err)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// open_withdrawal_surface
// ---------------------------------------------------------------------------

type OpenSurfaceWorker struct {
	river.WorkerDefaults[OpenSurfaceArgs]
	gateway SurfaceGateway
	txns    TransactionStore
	timeout time.Duration
	log     *slog.Logger
}

func NewOpenSurfaceWorker(gateway SurfaceGateway, txns TransactionStore, timeout time.Duration, log *slog.Logger) *OpenSurfaceWorker {
	return &OpenSurfaceWorker{gateway: gateway, txns: txns, timeout: timeoutOr(timeout), log: loggerOr(log)}
}

func (w *OpenSurfaceWorker) Timeout(*river.Job[OpenSurfaceArgs]) time.Duration { return w.timeout }

// Work is idempotent: a transaction that already has a surface is skipped.
func (w *OpenSurfaceWorker) Work(ctx context.Context, job *river.Job[OpenSurfaceArgs]) error {
	t, err := loadTransaction(ctx, w.txns, job.Args.TransactionID)
	if err != nil {
		return err
	}
	if t.SurfaceChannelID != nil {
		w.log.Info("approval surface already open", "transaction_id", t.TransactionID, "channel_id", *t.SurfaceChannelID)
		return nil
	}
	channelID, messageID, err := w.gateway.OpenWithdrawalSurface(ctx, models.WithdrawalSurface{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		GuildID:       t.GuildID,
		AmountCents:   t.AmountCents,
		BalanceCents:  job.Args.BalanceCents,
	})
	if err != nil {
		return fmt.Errorf("open approval surface: %w", err)
	}
	if err := w.txns.AttachSurface(ctx, t.TransactionID, channelID, messageID); err != nil {
		return fmt.Errorf("attach surface: %w", err)
	}
	w.log.Info("approval surface opened", "transaction_id", t.TransactionID, "channel_id", channelID)
	return nil
}

// ---------------------------------------------------------------------------
// finalize_withdrawal_surface
// ---------------------------------------------------------------------------

type FinalizeSurfaceWorker struct {
	river.WorkerDefaults[FinalizeSurfaceArgs]
	gateway SurfaceGateway
	txns    TransactionStore
	timeout time.Duration
}

func NewFinalizeSurfaceWorker(gateway SurfaceGateway, txns TransactionStore, timeout time.Duration) *FinalizeSurfaceWorker {
	return &FinalizeSurfaceWorker{gateway: gateway, txns: txns, timeout: timeoutOr(timeout)}
}

func (w *FinalizeSurfaceWorker) Timeout(*river.Job[FinalizeSurfaceArgs]) time.Duration { return w.timeout }

// Work retries until the surface has been attached by the open job.
func (w *FinalizeSurfaceWorker) Work(ctx context.Context, job *river.Job[FinalizeSurfaceArgs]) error {
	t, err := loadTransaction(ctx, w.txns, job.Args.TransactionID)
	if err != nil {
		return err
	}
	if t.Status == models.TxStatusPending {
		return river.JobCancel(fmt.Errorf("transaction %s is still pending", t.TransactionID))
	}
	if t.SurfaceChannelID == nil || t.SurfaceMessageID == nil {
		return errSurfaceNotAttached
	}
	if err := w.gateway.FinalizeWithdrawalSurface(ctx, t); err != nil {
		return fmt.Errorf("finalize approval surface: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// notify_user
// ---------------------------------------------------------------------------

type NotifyUserWorker struct {
	river.WorkerDefaults[NotifyUserArgs]
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
}

func NewNotifyUserWorker(notifier Notifier, timeout time.Duration, log *slog.Logger) *NotifyUserWorker {
	return &NotifyUserWorker{notifier: notifier, timeout: timeoutOr(timeout), log: loggerOr(log)}
}

func (w *NotifyUserWorker) Timeout(*river.Job[NotifyUserArgs]) time.Duration { return w.timeout }

// Work swallows the delivery error on the last attempt; an unreachable user
// never fails the decision that triggered the message.
func (w *NotifyUserWorker) Work(ctx context.Context, job *river.Job[NotifyUserArgs]) error {
	err := w.notifier.NotifyUser(ctx, job.Args.notification())
	if err == nil {
		return nil
	}
	if job.JobRow != nil && job.Attempt >= job.MaxAttempts {
		w.log.Warn("giving up on user notification", "user_id", job.Args.UserID, "event", job.Args.Event, "attempt", job.Attempt, "error", err)
		return nil
	}
	return fmt.Errorf("notify user %s: %w", job.Args.UserID, err)
}
