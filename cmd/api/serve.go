package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/inventory-auth/internal/api/http"
	"github.com/spec-kit/inventory-auth/internal/api/http/handlers"
	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/config"
	"github.com/spec-kit/inventory-auth/internal/events"
	"github.com/spec-kit/inventory-auth/internal/observability"
	"github.com/spec-kit/inventory-auth/internal/persistence"
	"github.com/spec-kit/inventory-auth/internal/repository"
	"github.com/spec-kit/inventory-auth/internal/service"
	"github.com/spec-kit/inventory-auth/internal/worker"
)

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.Migrate(ctx, pg.Pool(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}

	dispatcher := events.NewMemoryBus()
	worker.StartAuditWorker(dispatcher, logger)

	authService := service.NewAuthService(cfg.Auth, codec, service.AuthDependencies{
		Users:    repository.NewUserRepository(pg.Pool()),
		Attempts: repository.NewLoginAttemptRepository(redis.Client),
		Events:   dispatcher,
		Logger:   logger,
	})

	metrics := observability.NewMetrics()
	translator := httptransport.NewFailureTranslator(logger, metrics)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ErrorHandler:          translator.ErrorHandler,
		DisableStartupMessage: true,
	})

	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Translator:     translator,
		AuthMiddleware: auth.NewAuthMiddleware(authService, logger, cfg.Auth.PublicPrefix, cfg.HTTP.FilesPublicPrefix),
		AllowedOrigin:  cfg.HTTP.CORSAllowedOrigin,
		RequestTimeout: cfg.App.RequestTimeout(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:        handlers.NewAuthHandler(authService),
		Users:       handlers.NewUsersHandler(authService),
		AuthPrefix:  cfg.Auth.PublicPrefix,
		FilesPrefix: cfg.HTTP.FilesPublicPrefix,
		UploadDir:   cfg.HTTP.UploadDir,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
