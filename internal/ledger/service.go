// Package ledger implements the cashback ledger: code redemption, balance
// queries and the withdrawal approval workflow. Every balance change runs in
// one database transaction with the account row locked, and side effects are
// enqueued as jobs inside that same transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/inaiurai/cashback/internal/ids"
	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/services"
)

const (
	// HistoryPageSize is the number of transactions per history page.
	HistoryPageSize = 5
	// ListLimit caps staff listings to what fits in one embed.
	ListLimit = 25

	maxIDAttempts = 5
)

// Seams for tests.
var (
	newTransactionID = ids.TransactionID
	newCode          = ids.Code
)

var errIDsExhausted = errors.New("could not allocate a unique identifier")

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type AccountStore interface {
	Ensure(ctx context.Context, userID string, now time.Time) error
	EnsureTx(ctx context.Context, tx pgx.Tx, userID string, now time.Time) error
	GetByID(ctx context.Context, userID string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*models.Account, error)
	CreditTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64, now time.Time) (int64, error)
	DebitTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64, now time.Time) (int64, error)
	RefundTx(ctx context.Context, tx pgx.Tx, userID string, amountCents int64) (int64, error)
	Totals(ctx context.Context, s *models.Stats) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (*models.Profile, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, userID string) (*models.Profile, error)
	SaveTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error
}

type CodeStore interface {
	Create(ctx context.Context, c *models.Code) (bool, error)
	ConsumeTx(ctx context.Context, tx pgx.Tx, code, userID string, now time.Time) (int64, error)
	List(ctx context.Context, filter string, limit int) ([]*models.Code, error)
	Counts(ctx context.Context, s *models.Stats) error
}

type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (*models.Transaction, error)
	DecideTx(ctx context.Context, tx pgx.Tx, id, status, decidedBy string, now time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ListWithdrawals(ctx context.Context, status string, limit int) ([]*models.Transaction, error)
	Counts(ctx context.Context, s *models.Stats) error
}

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}

// Surfaces performs the synchronous chat side effects of Transcript and Close.
type Surfaces interface {
	FindTextChannel(ctx context.Context, guildID, name string) (channelID string, found bool, err error)
	PostTranscript(ctx context.Context, channelID string, t *models.Transaction, requestedBy string) error
	LockSurface(ctx context.Context, t *models.Transaction) error
}

// InsertJobTxFunc enqueues a job within the given transaction. Provided by main
// using river.Client.InsertTx.
type InsertJobTxFunc func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error

// Policy holds the configurable workflow parameters.
type Policy struct {
	MinimumWithdrawalCents int64
	LogChannelName         string
	SideEffectTimeout      time.Duration
}

// Actor is the user invoking an operation, with the capabilities the chat
// platform reports for them.
type Actor struct {
	UserID         string
	GuildID        string
	Staff          bool
	ManageMessages bool
	Administrator  bool
}

// IsStaff gates the staff commands.
func (a Actor) IsStaff() bool { return a.Staff || a.Administrator }

// CanManageWithdrawals gates approve and reject.
func (a Actor) CanManageWithdrawals() bool { return a.Staff || a.ManageMessages || a.Administrator }

// Service is the ledger. All fields except Logger and Now are required.
type Service struct {
	Pool         TxBeginner
	Accounts     AccountStore
	Profiles     ProfileStore
	Codes        CodeStore
	Transactions TransactionStore
	Limiter      RateLimiter
	Surfaces     Surfaces
	InsertJob    InsertJobTxFunc
	Policy       Policy
	Logger       *slog.Logger
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) sideEffectTimeout() time.Duration {
	if s.Policy.SideEffectTimeout > 0 {
		return s.Policy.SideEffectTimeout
	}
	return 10 * time.Second
}

func (s *Service) allow(ctx context.Context, userID, action string) error {
	ok, err := s.Limiter.Allow(ctx, userID, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertTransaction assigns t a fresh id, regenerating on primary key collision.
func (s *Service) insertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	for i := 0; i < maxIDAttempts; i++ {
		t.TransactionID = newTransactionID()
		ok, err := s.Transactions.CreateTx(ctx, tx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if ok {
			return nil
		}
		s.log().Warn("transaction id collision, regenerating", "transaction_id", t.TransactionID)
	}
	return errIDsExhausted
}

// advanceProfile applies one redemption to the user's profile.
func (s *Service) advanceProfile(ctx context.Context, tx pgx.Tx, userID string, amountCents int64, now time.Time) (*models.Profile, error) {
	p, err := s.Profiles.GetForUpdateTx(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	next := services.ApplyTransaction(*p, amountCents, now)
	if err := s.Profiles.SaveTx(ctx, tx, &next); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &next, nil
}

func (s *Service) enqueue(ctx context.Context, tx pgx.Tx, args river.JobArgs) error {
	if err := s.InsertJob(ctx, tx, args); err != nil {
		return fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
	return nil
}
