package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/fleetgrid/fleetgate/internal/config"
	delivery "github.com/fleetgrid/fleetgate/internal/delivery/http"
	"github.com/fleetgrid/fleetgate/internal/repository"
	"github.com/fleetgrid/fleetgate/internal/usecase"
	"github.com/fleetgrid/fleetgate/pkg/security"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Infrastructure.
	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		logger.Error("failed to open PostgreSQL connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// Repositories.
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	auditRepo := repository.NewPostgresAuditRepo(db)
	attemptRepo := repository.NewRedisAttemptRepo(rdb, cfg.FailedAttemptTTL)
	denylistRepo := repository.NewRedisDenylistRepo(rdb)

	// Business logic.
	classifier, err := usecase.NewSeverityClassifier(cfg.RepeatedFailureThreshold, cfg.BruteForceThreshold)
	if err != nil {
		logger.Error("invalid classifier thresholds", "error", err)
		os.Exit(1)
	}
	tokens := security.NewTokenManager(cfg.JWTSecret, "fleetgate", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authUsecase := usecase.NewAuthUsecase(
		userRepo, sessionRepo, auditRepo, attemptRepo, denylistRepo,
		tokens, classifier, logger,
	)

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())

	authMW := delivery.JWTMiddleware(tokens, denylistRepo, logger)
	delivery.NewAuthHandler(e.Group("/auth"), authUsecase, authMW)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	go func() {
		logger.Info("starting fleetgate auth server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
