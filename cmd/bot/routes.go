package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/inaiurai/cashback/internal/auth"
	"github.com/inaiurai/cashback/internal/config"
	"github.com/inaiurai/cashback/internal/dashboard"
	"github.com/inaiurai/cashback/internal/handlers"
	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/middleware"
	"github.com/inaiurai/cashback/internal/router"
	"github.com/inaiurai/cashback/internal/services"
)

// Pinger reports database reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// newHTTPHandler mounts the interactions endpoint, the health check and,
// when an admin password hash is configured, the admin API.
func newHTTPHandler(cfg *config.Config, svc *ledger.Service, db Pinger, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	publicKey, err := middleware.ParsePublicKey(cfg.DiscordPublicKey)
	if err != nil {
		return nil, fmt.Errorf("DISCORD_PUBLIC_KEY: %w", err)
	}
	validator, err := services.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	interactions := handlers.NewInteractionHandler(svc, validator, cfg.StaffRoleID, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /interactions", middleware.VerifyDiscordSignature(publicKey)(http.HandlerFunc(interactions.Handle)))
	if cfg.AdminEnabled() {
		authSvc := auth.NewService(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret)
		api := router.New(auth.NewHandler(authSvc, logger), dashboard.NewHandler(svc, logger), middleware.AdminAuth(authSvc))
		mux.Handle("/api/", cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(api))
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set; admin API not served")
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			logger.Warn("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}
