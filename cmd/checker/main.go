package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/byigitt/visa-checker/internal/config"
	"github.com/byigitt/visa-checker/internal/domain/appointment"
	"github.com/byigitt/visa-checker/internal/domain/notification"
	"github.com/byigitt/visa-checker/internal/infra/ratelimit"
	"github.com/byigitt/visa-checker/internal/infra/seen"
	"github.com/byigitt/visa-checker/internal/infra/telegram"
	"github.com/byigitt/visa-checker/internal/infra/visaapi"
	"github.com/byigitt/visa-checker/internal/router"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"country", cfg.Checker.Country,
		"missions", cfg.Checker.MissionCodes,
		"interval", cfg.Checker.Interval(),
	)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Seen store: Redis when configured, in-memory otherwise
	var seenStore appointment.SeenStore
	var closeStore func() error
	if cfg.Redis.Address != "" {
		redisStore := seen.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Checker.SeenTTL())
		seenStore = redisStore
		closeStore = redisStore.Close
		slog.Info("using redis seen store", "address", cfg.Redis.Address)
	} else {
		memStore := seen.NewMemoryStore(cfg.Checker.SeenTTL())
		seenStore = memStore
		closeStore = memStore.Close
		slog.Info("using in-memory seen store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Error("closing seen store", "error", err)
		}
	}()

	// Message renderer
	renderer, err := notification.NewRenderer(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize renderer", "error", err)
		os.Exit(1)
	}

	// Send-budget limiter
	limiter, err := ratelimit.NewWindowLimiter(cfg.Telegram.RateLimit, ratelimit.DefaultWindow)
	if err != nil {
		slog.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	defer limiter.Shutdown()

	// Telegram transport
	transport := telegram.NewClient(cfg.Telegram.Token)

	// Dispatcher
	dispatcher := notification.NewDispatcher(
		transport,
		limiter,
		renderer,
		cfg.Telegram.ChatID,
		cfg.Telegram.MaxThrottleRetries,
	)

	// Upstream appointment API
	apiClient := visaapi.NewClient(cfg.API.BaseURL, cfg.API.RequestsPerSecond)

	// Checker
	checker := appointment.NewChecker(
		apiClient,
		seenStore,
		dispatcher,
		appointment.Filters{
			Country:         cfg.Checker.Country,
			MissionCodes:    cfg.Checker.MissionCodes,
			Cities:          cfg.Checker.Cities,
			VisaSubcategory: cfg.Checker.VisaSubcategory,
		},
		cfg.Checker.Interval(),
	)

	// ==========================================
	// Background loops + status API
	// ==========================================

	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checkerDone := make(chan struct{})
	go func() {
		defer close(checkerDone)
		checker.Run(checkerCtx)
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(cfg, checker, limiter),
	}

	go func() {
		slog.Info("status API listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status API failed", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	// Drain the checker before tearing down the limiter it sends through.
	checkerCancel()
	<-checkerDone
	limiter.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("status API shutdown failed", "error", err)
	}

	slog.Info("exited gracefully")
}
