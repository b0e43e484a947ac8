package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/riverqueue/river"

	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/services"
)

// ---------------------------------------------------------------------------
// In-memory stores. One fakeDB backs every store interface so the service
// logic runs unchanged without a database.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- TxBeginner mock ---

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

type fakeDB struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	profiles map[string]*models.Profile
	codes    map[string]*models.Code
	txns     map[string]*models.Transaction
	seq      map[string]int
	next     int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		accounts: make(map[string]*models.Account),
		profiles: make(map[string]*models.Profile),
		codes:    make(map[string]*models.Code),
		txns:     make(map[string]*models.Transaction),
		seq:      make(map[string]int),
	}
}

func (db *fakeDB) account(userID string) models.Account {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.accounts[userID]
}

func (db *fakeDB) profile(userID string) models.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.profiles[userID]
}

func (db *fakeDB) transaction(id string) models.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.txns[id]
}

func (db *fakeDB) addCode(code string, amountCents int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.codes[code] = &models.Code{Code: code, AmountCents: amountCents, CreatedBy: "staff"}
}

func (db *fakeDB) setSurface(txID, channelID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txns[txID].SurfaceChannelID = &channelID
}

// --- AccountStore ---

type fakeAccounts struct{ db *fakeDB }

func (f fakeAccounts) Ensure(ctx context.Context, userID string, now time.Time) error {
	return f.EnsureTx(ctx, nil, userID, now)
}

func (f fakeAccounts) EnsureTx(_ context.Context, _ pgx.Tx, userID string, now time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.accounts[userID]; !ok {
		f.db.accounts[userID] = &models.Account{UserID: userID, CreatedAt: now}
		p := services.NewProfile(userID, now)
		f.db.profiles[userID] = &p
	}
	return nil
}

func (f fakeAccounts) GetByID(_ context.Context, userID string) (*models.Account, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.accounts[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f fakeAccounts) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, userID string) (*models.Account, error) {
	return f.GetByID(ctx, userID)
}

func (f fakeAccounts) CreditTx(_ context.Context, _ pgx.Tx, userID string, amount int64, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a := f.db.accounts[userID]
	a.BalanceCents += amount
	a.TotalEarnedCents += amount
	a.LastTransactionAt = &now
	a.TransactionCount++
	return a.BalanceCents, nil
}

func (f fakeAccounts) DebitTx(_ context.Context, _ pgx.Tx, userID string, amount int64, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a := f.db.accounts[userID]
	if a.BalanceCents < amount {
		return 0, pgx.ErrNoRows
	}
	a.BalanceCents -= amount
	a.TotalWithdrawnCents += amount
	a.LastTransactionAt = &now
	a.TransactionCount++
	return a.BalanceCents, nil
}

func (f fakeAccounts) RefundTx(_ context.Context, _ pgx.Tx, userID string, amount int64) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a := f.db.accounts[userID]
	a.BalanceCents += amount
	return a.BalanceCents, nil
}

func (f fakeAccounts) Totals(_ context.Context, s *models.Stats) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, a := range f.db.accounts {
		s.TotalUsers++
		s.TotalEarnedCents += a.TotalEarnedCents
		s.TotalWithdrawnCents += a.TotalWithdrawnCents
		s.CurrentBalanceCents += a.BalanceCents
	}
	return nil
}

// --- ProfileStore ---

type fakeProfiles struct{ db *fakeDB }

func (f fakeProfiles) GetByID(_ context.Context, userID string) (*models.Profile, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f fakeProfiles) GetForUpdateTx(ctx context.Context, _ pgx.Tx, userID string) (*models.Profile, error) {
	return f.GetByID(ctx, userID)
}

func (f fakeProfiles) SaveTx(_ context.Context, _ pgx.Tx, p *models.Profile) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cp := *p
	f.db.profiles[p.UserID] = &cp
	return nil
}

// --- CodeStore ---

type fakeCodes struct{ db *fakeDB }

func (f fakeCodes) Create(_ context.Context, c *models.Code) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.codes[c.Code]; ok {
		return false, nil
	}
	cp := *c
	f.db.codes[c.Code] = &cp
	return true, nil
}

func (f fakeCodes) ConsumeTx(_ context.Context, _ pgx.Tx, code, userID string, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.codes[code]
	if !ok || c.Redeemed {
		return 0, pgx.ErrNoRows
	}
	c.Redeemed = true
	c.RedeemedBy = &userID
	c.RedeemedAt = &now
	return c.AmountCents, nil
}

func (f fakeCodes) List(_ context.Context, filter string, limit int) ([]*models.Code, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*models.Code
	for _, c := range f.db.codes {
		if (filter == models.CodeFilterActive && c.Redeemed) || (filter == models.CodeFilterRedeemed && !c.Redeemed) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeCodes) Counts(_ context.Context, s *models.Stats) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.codes {
		s.TotalCodes++
		if !c.Redeemed {
			s.ActiveCodes++
		}
	}
	return nil
}

// --- TransactionStore ---

type fakeTxns struct{ db *fakeDB }

func (f fakeTxns) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.txns[t.TransactionID]; ok {
		return false, nil
	}
	cp := *t
	f.db.txns[t.TransactionID] = &cp
	f.db.next++
	f.db.seq[t.TransactionID] = f.db.next
	return true, nil
}

func (f fakeTxns) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.txns[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f fakeTxns) GetForUpdateTx(ctx context.Context, _ pgx.Tx, id string) (*models.Transaction, error) {
	return f.GetByID(ctx, id)
}

func (f fakeTxns) DecideTx(_ context.Context, _ pgx.Tx, id, status, decidedBy string, now time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.txns[id]
	if !ok || t.Status != models.TxStatusPending {
		return pgx.ErrNoRows
	}
	t.Status = status
	t.DecidedBy = &decidedBy
	t.DecidedAt = &now
	return nil
}

// sorted returns matching transactions newest first.
func (f fakeTxns) sorted(match func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, t := range f.db.txns {
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.db.seq[out[i].TransactionID] > f.db.seq[out[j].TransactionID] })
	return out
}

func (f fakeTxns) ListByUser(_ context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.sorted(func(t *models.Transaction) bool { return t.UserID == userID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f fakeTxns) CountByUser(_ context.Context, userID string) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, t := range f.db.txns {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeTxns) ListWithdrawals(_ context.Context, status string, limit int) ([]*models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := f.sorted(func(t *models.Transaction) bool { return t.Type == models.TxTypeWithdrawal && t.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeTxns) Counts(_ context.Context, s *models.Stats) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.txns {
		s.TotalTransactions++
		if t.IsPendingWithdrawal() {
			s.PendingWithdrawals++
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type allowAll struct{}

func (allowAll) Allow(context.Context, string, string) (bool, error) { return true, nil }

type jobRecorder struct {
	mu   sync.Mutex
	jobs []river.JobArgs
}

func (r *jobRecorder) insert(_ context.Context, _ pgx.Tx, args river.JobArgs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, args)
	return nil
}

func (r *jobRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = j.Kind()
	}
	return out
}

type fakeSurfaces struct {
	mu          sync.Mutex
	channels    map[string]string
	transcripts []string
	locked      []string
	err         error
}

func (f *fakeSurfaces) FindTextChannel(_ context.Context, guildID, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	id, ok := f.channels[guildID+"/"+name]
	return id, ok, nil
}

func (f *fakeSurfaces) PostTranscript(_ context.Context, channelID string, t *models.Transaction, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, channelID+":"+t.TransactionID)
	return nil
}

func (f *fakeSurfaces) LockSurface(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.SurfaceChannelID == nil {
		return errors.New("no channel")
	}
	f.locked = append(f.locked, *t.SurfaceChannelID)
	return nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	svc      *Service
	db       *fakeDB
	jobs     *jobRecorder
	surfaces *fakeSurfaces
}

func newHarness(limiter RateLimiter) *harness {
	if limiter == nil {
		limiter = allowAll{}
	}
	db := newFakeDB()
	jobs := &jobRecorder{}
	surfaces := &fakeSurfaces{channels: make(map[string]string)}
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	svc := &Service{
		Pool:         mockPool{},
		Accounts:     fakeAccounts{db},
		Profiles:     fakeProfiles{db},
		Codes:        fakeCodes{db},
		Transactions: fakeTxns{db},
		Limiter:      limiter,
		Surfaces:     surfaces,
		InsertJob:    jobs.insert,
		Policy: Policy{
			MinimumWithdrawalCents: 100,
			LogChannelName:         "staff-log-channel",
			SideEffectTimeout:      time.Second,
		},
		Now: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	}
	return &harness{svc: svc, db: db, jobs: jobs, surfaces: surfaces}
}
