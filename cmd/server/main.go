package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/cache"
	"medorder/backend/internal/config"
	"medorder/backend/internal/download"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/httpapi"
	"medorder/backend/internal/logging"
	"medorder/backend/internal/metrics"
	"medorder/backend/internal/pdf"
	"medorder/backend/internal/service"
	"medorder/backend/internal/statement"
	"medorder/backend/internal/store"
	"medorder/backend/internal/store/memory"
	pgstore "medorder/backend/internal/store/postgres"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := metrics.New()
	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if cfg.DBAutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Fatal("apply schema", zap.Error(err))
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(logger)
		logger.Info("repository: in-memory")
	}

	var drafts cache.DraftCache = cache.NewMemoryDraftCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDraftCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-memory draft cache", zap.Error(err))
		} else {
			drafts = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis")
		}
	} else {
		logger.Info("cache: memory")
	}

	deps := service.Deps{
		Repo:       repo,
		Drafts:     drafts,
		Statements: statement.NewBuilder(repo, cfg.Company, logger),
		Downloads: download.NewManager(pdf.NewStatementRenderer(), download.Options{
			MaxAttempts: cfg.Download.MaxAttempts,
			RetryDelay:  cfg.Download.RetryDelay,
			Timeout:     cfg.Download.Timeout,
		}, logger, m),
		Logger:     logger,
		Metrics:    m,
		ExportDir:  cfg.ExportDir,
		DraftTTL:   cfg.DraftTTL,
		SessionTTL: cfg.SessionTTL,
	}
	if cfg.GatewayURL != "" {
		gw := gateway.New(gateway.Config{
			BaseURL: cfg.GatewayURL,
			APIKey:  cfg.GatewayAPIKey,
			Timeout: cfg.GatewayTimeout,
		}, logger, m)
		deps.Identity = gw
		deps.Mailer = gw
		logger.Info("identity: gateway", zap.String("url", cfg.GatewayURL))
	} else {
		logger.Info("identity: local")
	}

	svc := service.New(deps)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger, m)

	runCtx, stopSweeper := context.WithCancel(context.Background())
	go svc.Sessions().Run(runCtx, sessionSweepInterval)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("medorder backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	stopSweeper()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.AppEnv == "production" {
		return fmt.Errorf("ALLOWED_ORIGIN must name the console origin in production")
	}
	if cfg.Download.MaxAttempts < 1 {
		return fmt.Errorf("download max attempts must be at least 1")
	}
	return nil
}
