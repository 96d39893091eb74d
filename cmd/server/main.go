// Package main is the entry point for the OMS core API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"omscore/internal/config"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/campaigns"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
	v1 "omscore/internal/infrastructure/http/v1"
	"omscore/internal/infrastructure/http/v1/middleware"
	"omscore/internal/infrastructure/storage/postgres"
	"omscore/internal/infrastructure/storage/postgres/auth_repo"
	"omscore/internal/infrastructure/storage/postgres/org_repo"
	"omscore/internal/infrastructure/storage/postgres/permission_repo"
	"omscore/internal/observability"
	"omscore/pkg/logger"
)

func main() {
	// A missing .env is fine outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting server", "name", cfg.AppName, "version", cfg.AppVersion, "env", cfg.AppEnv)

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.PGDSN, cfg.PGMaxConns, cfg.PGMinConns))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool).WithStatementTimeout(cfg.PGStatementTimeout)

	// --- Repositories ---
	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)
	bodyRepo := org_repo.NewBodyRepo(txManager)
	circleRepo := org_repo.NewCircleRepo(txManager)
	permissionRepo := permission_repo.NewPermissionRepo(txManager)

	auditRepo, err := postgres.NewAuditRepo(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit trail", "error", err)
	}

	// --- Services ---
	circleService := circles.NewService(circleRepo)
	campaignService := campaigns.NewService(org_repo.NewCampaignRepo(txManager))
	permissionService := permissions.NewService(permissionRepo).WithAudit(txManager, auditRepo)
	bodyService := bodies.NewService(bodies.Deps{
		Bodies:       bodyRepo,
		Memberships:  org_repo.NewMembershipRepo(txManager),
		Payments:     org_repo.NewPaymentRepo(txManager),
		JoinRequests: org_repo.NewJoinRequestRepo(txManager),
		Circles:      circleRepo,
		Users:        userRepo,
		TxManager:    txManager,
		Audit:        auditRepo,
	})
	authService := auth.NewService(userRepo, tokenRepo, cfg.AccessTokenTTL)
	authorizer := auth.NewAuthorizer(userRepo, tokenRepo, circleService, permissionRepo, cfg.AuthLoadTimeout)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	// --- Router ---
	handler := v1.Handler(v1.RouterConfig{
		AppName:      cfg.AppName,
		AppVersion:   cfg.AppVersion,
		Logger:       log,
		Metrics:      metrics,
		DB:           pool,
		Authorizer:   authorizer,
		AuthService:  authService,
		Bodies:       bodyService,
		Campaigns:    campaignService,
		Circles:      circleService,
		Permissions:  permissionService,
		Audit:        auditRepo,
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginRateBurst),
		Gzip:         cfg.GzipEnabled,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	statsTicker := time.NewTicker(5 * time.Minute)
	defer statsTicker.Stop()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

wait:
	for {
		select {
		case <-statsTicker.C:
			pool.LogStats(ctx)
		case <-quit:
			break wait
		}
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
