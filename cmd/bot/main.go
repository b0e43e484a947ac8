package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/inaiurai/cashback/internal/config"
	"github.com/inaiurai/cashback/internal/discord"
	"github.com/inaiurai/cashback/internal/execution"
	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/ratelimit"
	"github.com/inaiurai/cashback/internal/repository"
)

// Compile-time wiring checks.
var (
	_ ledger.AccountStore        = (*repository.AccountRepo)(nil)
	_ ledger.ProfileStore        = (*repository.ProfileRepo)(nil)
	_ ledger.CodeStore           = (*repository.CodeRepo)(nil)
	_ ledger.TransactionStore    = (*repository.TransactionRepo)(nil)
	_ ledger.RateLimiter         = (*ratelimit.Limiter)(nil)
	_ ledger.Surfaces            = (*discord.Gateway)(nil)
	_ execution.SurfaceGateway   = (*discord.Gateway)(nil)
	_ execution.Notifier         = (*discord.Gateway)(nil)
	_ execution.TransactionStore = (*repository.TransactionRepo)(nil)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if !cfg.DiscordEnabled() {
		slog.Error("DISCORD_BOT_TOKEN is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := repository.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	accountRepo := repository.NewAccountRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	codeRepo := repository.NewCodeRepo(pool)
	txnRepo := repository.NewTransactionRepo(pool)

	var store ratelimit.Store
	switch cfg.RateLimitBackend {
	case config.RateLimitMemory:
		store = ratelimit.NewMemoryStore()
	default:
		store = ratelimit.NewPostgresStore(pool)
	}
	limiter := ratelimit.New(store, nil)

	// Discord REST session; interactions arrive over HTTP so no gateway
	// websocket is opened.
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}
	me, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("Discord authentication failed", "error", err)
		os.Exit(1)
	}
	if cfg.RegisterCommands {
		if err := discord.RegisterCommands(ctx, session, cfg.DiscordAppID, cfg.DiscordGuildID); err != nil {
			slog.Error("Slash command registration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Slash commands registered", "guild_id", cfg.DiscordGuildID)
	}
	gateway := discord.NewGateway(session, discord.GatewayConfig{
		BotUserID:    me.ID,
		StaffRoleID:  cfg.StaffRoleID,
		CategoryName: cfg.WithdrawalCategory,
	}, logger)

	// Job insert is set after River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn ledger.InsertJobTxFunc
	insertJob := func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	ledgerSvc := &ledger.Service{
		Pool:         pool,
		Accounts:     accountRepo,
		Profiles:     profileRepo,
		Codes:        codeRepo,
		Transactions: txnRepo,
		Limiter:      limiter,
		Surfaces:     gateway,
		InsertJob:    insertJob,
		Policy: ledger.Policy{
			MinimumWithdrawalCents: cfg.MinWithdrawalCents,
			LogChannelName:         cfg.StaffLogChannel,
			SideEffectTimeout:      cfg.SideEffectTimeout,
		},
		Logger: logger,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewOpenSurfaceWorker(gateway, txnRepo, cfg.SideEffectTimeout, logger))
	river.AddWorker(workers, execution.NewFinalizeSurfaceWorker(gateway, txnRepo, cfg.SideEffectTimeout))
	river.AddWorker(workers, execution.NewNotifyUserWorker(gateway, cfg.SideEffectTimeout, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverMaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args river.JobArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	handler, err := newHTTPHandler(cfg, ledgerSvc, pool, logger)
	if err != nil {
		slog.Error("Failed to build HTTP routes", "error", err)
		os.Exit(1)
	}

	if err := riverClient.Start(ctx); err != nil {
		slog.Error("Failed to start River client", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River stop", "error", err)
	}
}
