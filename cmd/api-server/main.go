package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medihub/medihub-api/internal/api"
	"github.com/medihub/medihub-api/internal/audit"
	"github.com/medihub/medihub-api/internal/booking"
	"github.com/medihub/medihub-api/internal/config"
	"github.com/medihub/medihub-api/internal/db"
	"github.com/medihub/medihub-api/internal/directory"
	"github.com/medihub/medihub-api/internal/identity"
	"github.com/medihub/medihub-api/internal/records"
	redisclient "github.com/medihub/medihub-api/internal/redis"
)

var version = "dev"

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		logger.Fatal().Err(err).Msg("schema migration error")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	blobs, err := records.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload dir error")
	}

	auditLog := audit.NewLogger(audit.NewPgRepository(pgPool), logger)
	tokens := identity.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	identitySvc := identity.NewService(identity.NewPgRepository(pgPool), tokens)
	directorySvc := directory.NewService(directory.NewPgRepository(pgPool), redisclient.NewCache(rdb), cfg.DirectoryCacheTTL, logger)
	bookingSvc := booking.NewService(booking.NewPgRepository(pgPool), auditLog)
	recordsSvc := records.NewService(records.NewPgRepository(pgPool), blobs, auditLog)

	handler := api.NewRouter(api.RouterConfig{
		Booking:   bookingSvc,
		Identity:  identitySvc,
		Directory: directorySvc,
		Records:   recordsSvc,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    logger,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
