package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stellarsaas/stellar/internal/app"
	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/dashboard"
	"github.com/stellarsaas/stellar/internal/export"
	"github.com/stellarsaas/stellar/internal/identity"
	"github.com/stellarsaas/stellar/internal/landing"
	"github.com/stellarsaas/stellar/internal/observability"
	"github.com/stellarsaas/stellar/internal/platform/cache"
	"github.com/stellarsaas/stellar/internal/profile"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
	"github.com/stellarsaas/stellar/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.Open(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	notifier := session.NewNotifier(redisClient, logger)
	sessionManager := shared.NewSessionManager(redisClient, "stellar_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	sessionManager.OnChange(notifier.Publish)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	repo := session.NewCookieRepository()
	gate := auth.NewGate(repo, logger)
	identityClient := identity.NewClient(cfg.AuthAPIURL, nil)
	authService := auth.NewService(identityClient, repo, metrics)

	dashboardService, err := dashboard.NewService()
	if err != nil {
		logger.Error("load dashboard fixtures", slog.Any("error", err))
		os.Exit(1)
	}
	exporter := profile.NewExporter(export.NewStore(redisClient, cfg.ExportTTL), jobClient)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Gate:             gate,
		LandingHandler:   landing.NewHandler(logger, templates, csrfManager, gate, jobClient),
		AuthHandler:      auth.NewHandler(logger, authService, templates, csrfManager),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, templates, csrfManager),
		ProfileHandler:   profile.NewHandler(logger, authService, exporter, jobClient, templates, csrfManager),
		SessionEvents:    session.NewEventsHandler(redisClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("auth_api", cfg.AuthAPIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
