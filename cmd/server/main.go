package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Madhuiit/dcl/internal/auction"
	"github.com/Madhuiit/dcl/internal/auth"
	"github.com/Madhuiit/dcl/internal/bootstrap"
	"github.com/Madhuiit/dcl/internal/config"
	"github.com/Madhuiit/dcl/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	envFile := os.Getenv("DCL_DOTENV_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.AdminPassword == "" {
		slog.Error("ADMIN_PASSWORD is required")
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = randomSecret()
		slog.Warn("SESSION_SECRET not set, using a random secret (sessions end on restart)")
	}
	sessions, err := auth.NewManager(cfg.AdminPassword, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		slog.Error("session setup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- WebSocket hub ---
	wsHub := auction.NewWSHub()
	go wsHub.Run(ctx)

	// --- Ledger ---
	app, err := bootstrap.Build(ctx, cfg, wsHub, logger)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	rules := app.Engine.Rules()
	slog.Info("auction rules",
		"teams", len(cfg.Auction.Teams),
		"initial_points", rules.InitialPoints,
		"minimum_team_size", rules.MinimumTeamSize,
		"minimum_bid", rules.MinimumBid,
		"enforce_limit_on_adjust", rules.EnforceLimitOnAdjust,
	)

	auctionSvc := auction.NewService(app.Engine)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"dcl-auction"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Post("/login", sessions.Login)
	r.Post("/logout", sessions.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Group(func(r chi.Router) {
			// Long-lived WebSocket connections must not hit the timeout.
			r.Get("/ws", wsHub.HandleWS)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			auctionSvc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("dcl-auction listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down dcl-auction...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stop()
	fmt.Println("dcl-auction stopped")
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
